// Package prediction derives follow-up signals from a module ranking:
// expected-but-unobserved phenotypes, characteristic phenotype lists, and
// the single most discriminative next question.
package prediction

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/scoring"
)

// Engine predicts missing phenotypes and selects discriminative questions.
// Like the scoring engine it is stateless apart from its configuration.
type Engine struct {
	provider domain.DataProvider
	config   domain.PredictionConfig
	logger   *logrus.Logger
}

// NewEngine creates a prediction engine over the given provider.
func NewEngine(provider domain.DataProvider, config domain.PredictionConfig, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// PredictMissing returns the module's phenotypes that are neither observed
// nor excluded and meet the minimum-prevalence threshold, ranked by
// prevalence descending (ties: specificity descending, then id ascending)
// and truncated to topN. A topN of zero or less uses the configured default.
func (e *Engine) PredictMissing(moduleID int, observed, excluded scoring.PhenotypeSet, topN int) ([]domain.PhenotypePrediction, error) {
	module, err := e.provider.Module(moduleID)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = e.config.MaxPredictions
	}

	candidates := make([]domain.PhenotypePrediction, 0, len(module.Phenotypes))
	for id, pheno := range module.Phenotypes {
		if observed.Contains(id) || excluded.Contains(id) {
			continue
		}
		if pheno.Prevalence < e.config.MinPrevalence {
			continue
		}
		candidates = append(candidates, domain.PhenotypePrediction{
			ID:          id,
			Name:        pheno.Name,
			Prevalence:  pheno.Prevalence,
			Specificity: pheno.Specificity,
			Reason:      predictionReason(pheno),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Prevalence != candidates[j].Prevalence {
			return candidates[i].Prevalence > candidates[j].Prevalence
		}
		if candidates[i].Specificity != candidates[j].Specificity {
			return candidates[i].Specificity > candidates[j].Specificity
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

// ExpectedPhenotypes returns the module's most characteristic phenotypes,
// ranked by prevalence × specificity.
func (e *Engine) ExpectedPhenotypes(moduleID int, topN int) ([]domain.PhenotypePrediction, error) {
	module, err := e.provider.Module(moduleID)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.PhenotypePrediction, 0, len(module.Phenotypes))
	for id, pheno := range module.Phenotypes {
		candidates = append(candidates, domain.PhenotypePrediction{
			ID:          id,
			Name:        pheno.Name,
			Prevalence:  pheno.Prevalence,
			Specificity: pheno.Specificity,
			Reason:      predictionReason(pheno),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si := candidates[i].Prevalence * candidates[i].Specificity
		sj := candidates[j].Prevalence * candidates[j].Specificity
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

// SuggestNextQuestion selects the phenotype from the top two modules'
// profiles that would most increase the score gap between them if observed.
// Ties prefer the higher combined prevalence+specificity in the top module,
// then the lowest identifier. When the top two modules share no eligible
// phenotype the highest-prevalence unobserved phenotype of the top module is
// suggested instead. A nil result means no further question is available.
func (e *Engine) SuggestNextQuestion(ranking domain.ModuleRanking, observed, excluded scoring.PhenotypeSet) (*domain.PhenotypePrediction, error) {
	if len(ranking.Matches) == 0 {
		return nil, nil
	}

	top, err := e.provider.Module(ranking.Matches[0].ModuleID)
	if err != nil {
		return nil, err
	}
	var second *domain.Module
	if len(ranking.Matches) >= 2 {
		second, err = e.provider.Module(ranking.Matches[1].ModuleID)
		if err != nil {
			return nil, err
		}
	}

	asked := func(id domain.PhenotypeID) bool {
		return observed.Contains(id) || excluded.Contains(id)
	}

	candidates := discriminators(top, second, asked)
	shared := false
	for _, c := range candidates {
		if c.inBoth {
			shared = true
			break
		}
	}

	if len(candidates) > 0 && shared {
		best := candidates[0]
		pheno := top.Phenotype(best.id)
		detail := fmt.Sprintf("would widen the gap between module %d and module %d by %.3f",
			top.ID, second.ID, best.gapDelta)
		prediction := &domain.PhenotypePrediction{
			ID:     best.id,
			Name:   best.name,
			Reason: detail,
		}
		if pheno != nil {
			prediction.Prevalence = pheno.Prevalence
			prediction.Specificity = pheno.Specificity
		}
		return prediction, nil
	}

	// No shared discriminator: fall back to the most prevalent remaining
	// phenotype of the top module.
	var fallback *domain.PhenotypeProfile
	for _, id := range sortedPhenotypeIDs(top) {
		pheno := top.Phenotypes[id]
		if asked(id) {
			continue
		}
		if fallback == nil ||
			pheno.Prevalence > fallback.Prevalence ||
			(pheno.Prevalence == fallback.Prevalence && pheno.Specificity > fallback.Specificity) {
			fallback = pheno
		}
	}
	if fallback == nil {
		return nil, nil
	}
	return &domain.PhenotypePrediction{
		ID:          fallback.ID,
		Name:        fallback.Name,
		Prevalence:  fallback.Prevalence,
		Specificity: fallback.Specificity,
		Reason:      fmt.Sprintf("most prevalent remaining phenotype of module %d (%.0f%%)", top.ID, fallback.Prevalence),
	}, nil
}

// DiscriminativeQuestions returns the ranked list behind SuggestNextQuestion:
// the top-N phenotypes by hypothetical gap increase between the current top
// module and the runner-up.
func (e *Engine) DiscriminativeQuestions(ranking domain.ModuleRanking, observed, excluded scoring.PhenotypeSet, topN int) ([]domain.PhenotypePrediction, error) {
	if len(ranking.Matches) < 2 {
		return nil, nil
	}
	top, err := e.provider.Module(ranking.Matches[0].ModuleID)
	if err != nil {
		return nil, err
	}
	second, err := e.provider.Module(ranking.Matches[1].ModuleID)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = e.config.MaxDiscriminative
	}

	asked := func(id domain.PhenotypeID) bool {
		return observed.Contains(id) || excluded.Contains(id)
	}

	candidates := discriminators(top, second, asked)
	out := make([]domain.PhenotypePrediction, 0, topN)
	for _, c := range candidates {
		if len(out) == topN {
			break
		}
		topPrev, secondPrev := 0.0, 0.0
		var spec float64
		if pheno := top.Phenotype(c.id); pheno != nil {
			topPrev, spec = pheno.Prevalence, pheno.Specificity
		}
		if pheno := second.Phenotype(c.id); pheno != nil {
			secondPrev = pheno.Prevalence
		}
		out = append(out, domain.PhenotypePrediction{
			ID:          c.id,
			Name:        c.name,
			Prevalence:  topPrev,
			Specificity: spec,
			Reason: fmt.Sprintf("%.0f%% prevalence in module %d vs %.0f%% in module %d",
				topPrev, top.ID, secondPrev, second.ID),
		})
	}
	return out, nil
}

// ExplainScoring returns the standalone explainability trail for one module,
// including observed phenotypes the module does not carry (zero
// contribution), sorted by contribution magnitude descending.
func (e *Engine) ExplainScoring(moduleID int, observed, excluded scoring.PhenotypeSet) ([]domain.ExplainabilityItem, error) {
	module, err := e.provider.Module(moduleID)
	if err != nil {
		return nil, err
	}

	var items []domain.ExplainabilityItem
	for _, id := range observed.Sorted() {
		pheno := module.Phenotype(id)
		if pheno == nil {
			items = append(items, domain.ExplainabilityItem{
				PhenotypeID: id,
				Name:        string(id),
				Detail:      "not present in module profile",
			})
			continue
		}
		items = append(items, domain.ExplainabilityItem{
			PhenotypeID:  id,
			Name:         pheno.Name,
			Contribution: pheno.Weight(),
			Detail: fmt.Sprintf("supports module (prevalence %.1f%%, specificity %.1f%%)",
				pheno.Prevalence, pheno.Specificity),
		})
	}
	for _, id := range excluded.Sorted() {
		pheno := module.Phenotype(id)
		if pheno == nil {
			continue
		}
		items = append(items, domain.ExplainabilityItem{
			PhenotypeID:  id,
			Name:         pheno.Name,
			Contribution: -(pheno.Prevalence + pheno.Specificity) / 400.0,
			Detail:       fmt.Sprintf("penalizes module (excluded, %.1f%% prevalence)", pheno.Prevalence),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := abs(items[i].Contribution), abs(items[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return items[i].PhenotypeID < items[j].PhenotypeID
	})
	return items, nil
}

// discriminator is a candidate next question drawn from the union of the
// top two modules' phenotype profiles.
type discriminator struct {
	id       domain.PhenotypeID
	name     string
	gapDelta float64 // hypothetical gap increase if observed
	combined float64 // prevalence+specificity in the top module
	inBoth   bool
}

// discriminators enumerates eligible candidates sorted by gap delta
// descending, then combined weight in the top module, then id.
func discriminators(top, second *domain.Module, asked func(domain.PhenotypeID) bool) []discriminator {
	pool := make(map[domain.PhenotypeID]*discriminator)

	consider := func(id domain.PhenotypeID, name string) *discriminator {
		if d, ok := pool[id]; ok {
			return d
		}
		d := &discriminator{id: id, name: name}
		pool[id] = d
		return d
	}

	for _, id := range sortedPhenotypeIDs(top) {
		if asked(id) {
			continue
		}
		pheno := top.Phenotypes[id]
		d := consider(id, pheno.Name)
		d.gapDelta += pheno.Weight()
		d.combined = pheno.Prevalence + pheno.Specificity
	}
	if second != nil {
		for _, id := range sortedPhenotypeIDs(second) {
			if asked(id) {
				continue
			}
			pheno := second.Phenotypes[id]
			d := consider(id, pheno.Name)
			d.gapDelta -= pheno.Weight()
			if top.Phenotype(id) != nil {
				d.inBoth = true
			}
		}
	}

	out := make([]discriminator, 0, len(pool))
	for _, d := range pool {
		out = append(out, *d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].gapDelta != out[j].gapDelta {
			return out[i].gapDelta > out[j].gapDelta
		}
		if out[i].combined != out[j].combined {
			return out[i].combined > out[j].combined
		}
		return out[i].id < out[j].id
	})
	return out
}

// predictionReason builds the human-readable reason for a prediction.
func predictionReason(pheno *domain.PhenotypeProfile) string {
	switch {
	case pheno.Prevalence >= 80:
		return fmt.Sprintf("very common in module (%.0f%% of genes)", pheno.Prevalence)
	case pheno.Prevalence >= 50:
		return fmt.Sprintf("common in module (%.0f%% of genes)", pheno.Prevalence)
	case pheno.Specificity >= 50:
		return fmt.Sprintf("highly specific to module (%.0f%% of carriers in module)", pheno.Specificity)
	default:
		return fmt.Sprintf("characteristic (prevalence %.0f%%, specificity %.0f%%)",
			pheno.Prevalence, pheno.Specificity)
	}
}

// sortedPhenotypeIDs returns a module's phenotype ids in ascending order so
// iteration is deterministic.
func sortedPhenotypeIDs(m *domain.Module) []domain.PhenotypeID {
	ids := make([]domain.PhenotypeID, 0, len(m.Phenotypes))
	for id := range m.Phenotypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

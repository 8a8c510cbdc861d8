// Package scoring implements the module scorer and gene ranker: transparent
// weighted sums over phenotype prevalence and specificity, with a full
// explainability trail for every score.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// Engine scores modules and ranks genes against phenotype input. It holds no
// state beyond its configuration; every call is a pure function of the
// provider tables and the observed/excluded sets.
type Engine struct {
	provider domain.DataProvider
	config   domain.ScoringConfig
	logger   *logrus.Logger
}

// NewEngine creates a scoring engine over the given provider.
func NewEngine(provider domain.DataProvider, config domain.ScoringConfig, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// PhenotypeSet is an unordered set of canonical phenotype identifiers.
type PhenotypeSet map[domain.PhenotypeID]struct{}

// NewPhenotypeSet builds a set from identifiers.
func NewPhenotypeSet(ids ...domain.PhenotypeID) PhenotypeSet {
	s := make(PhenotypeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports set membership.
func (s PhenotypeSet) Contains(id domain.PhenotypeID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identifiers in ascending order.
func (s PhenotypeSet) Sorted() []domain.PhenotypeID {
	ids := make([]domain.PhenotypeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ScoreModule scores a single module against the observed and excluded sets.
//
// Each observed phenotype present in the module contributes
// (prevalence+specificity)/200; each excluded phenotype present in the
// module is penalized by ExclusionPenalty × (prevalence+specificity)/400.
// Phenotypes absent from the module contribute zero. Both explanation lists
// are sorted by contribution magnitude descending.
func (e *Engine) ScoreModule(module *domain.Module, observed, excluded PhenotypeSet) (float64, []domain.ExplainabilityItem, []domain.ExplainabilityItem) {
	score := 0.0
	var contributing, penalized []domain.ExplainabilityItem

	for _, id := range observed.Sorted() {
		pheno := module.Phenotype(id)
		if pheno == nil {
			continue
		}
		contribution := pheno.Weight()
		score += contribution
		contributing = append(contributing, domain.ExplainabilityItem{
			PhenotypeID:  id,
			Name:         pheno.Name,
			Contribution: contribution,
			Detail: fmt.Sprintf("present in module (prevalence %.1f%%, specificity %.1f%%)",
				pheno.Prevalence, pheno.Specificity),
		})
	}

	for _, id := range excluded.Sorted() {
		pheno := module.Phenotype(id)
		if pheno == nil {
			continue
		}
		penalty := e.config.ExclusionPenalty * (pheno.Prevalence + pheno.Specificity) / 400.0
		score -= penalty
		penalized = append(penalized, domain.ExplainabilityItem{
			PhenotypeID:  id,
			Name:         pheno.Name,
			Contribution: -penalty,
			Detail: fmt.Sprintf("excluded but present in module (prevalence %.1f%%)",
				pheno.Prevalence),
		})
	}

	sortByMagnitude(contributing)
	sortByMagnitude(penalized)
	return score, contributing, penalized
}

// RankModules scores every module and returns them sorted by score
// descending, ties broken by ascending module id. The ranking confidence is
// (s1−s2)/s1 when the top score is positive and exactly 0 otherwise; it is
// deliberately not clamped, so it exceeds 1 when the runner-up is negative.
func (e *Engine) RankModules(observed, excluded PhenotypeSet) domain.ModuleRanking {
	modules := e.provider.Modules()
	matches := make([]domain.ModuleMatch, 0, len(modules))

	for _, module := range modules {
		score, contributing, penalized := e.ScoreModule(module, observed, excluded)
		matches = append(matches, domain.ModuleMatch{
			ModuleID:               module.ID,
			Score:                  score,
			GeneCount:              module.GeneCount(),
			ContributingPhenotypes: contributing,
			PenalizedPhenotypes:    penalized,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ModuleID < matches[j].ModuleID
	})

	ranking := domain.ModuleRanking{Matches: matches}
	ranking.Confidence = rankingConfidence(matches)

	e.logger.WithFields(logrus.Fields{
		"observed":   len(observed),
		"excluded":   len(excluded),
		"modules":    len(matches),
		"confidence": ranking.Confidence,
	}).Debug("Ranked modules")
	return ranking
}

// rankingConfidence derives the separation signal from the top two scores.
func rankingConfidence(matches []domain.ModuleMatch) float64 {
	if len(matches) == 0 || matches[0].Score <= 0 {
		return 0
	}
	second := 0.0
	if len(matches) >= 2 {
		second = matches[1].Score
	}
	return (matches[0].Score - second) / matches[0].Score
}

// RankGenes ranks every gene of a module by phenotype support. The ranking
// is total: genes with no observed support still appear, ordered by the
// stability adjustment alone and then by symbol. A missing module id is a
// data-integrity fault and returns a NotFoundError.
func (e *Engine) RankGenes(moduleID int, observed PhenotypeSet) ([]domain.GeneCandidate, error) {
	module, err := e.provider.Module(moduleID)
	if err != nil {
		return nil, err
	}
	genes, err := e.provider.ModuleGenes(moduleID)
	if err != nil {
		return nil, err
	}

	// Per-phenotype annotated-gene sets for the observed phenotypes the
	// module actually carries.
	type observedPheno struct {
		id        domain.PhenotypeID
		weight    float64
		annotated map[string]struct{}
	}
	var phenos []observedPheno
	for _, id := range observed.Sorted() {
		pheno := module.Phenotype(id)
		if pheno == nil {
			continue
		}
		annotated := make(map[string]struct{}, len(pheno.GenesWith))
		for _, g := range pheno.GenesWith {
			annotated[g] = struct{}{}
		}
		phenos = append(phenos, observedPheno{id: id, weight: pheno.Weight(), annotated: annotated})
	}

	candidates := make([]domain.GeneCandidate, 0, len(genes))
	for _, gene := range genes {
		support := 0.0
		var supporting []domain.PhenotypeID
		for _, pheno := range phenos {
			if _, ok := pheno.annotated[gene.Symbol]; ok {
				support += pheno.weight
				supporting = append(supporting, pheno.id)
			}
		}

		switch gene.Classification {
		case domain.StabilityCore:
			support += e.config.StabilityBonus
		case domain.StabilityUnstable:
			support -= e.config.StabilityPenalty
		}

		candidates = append(candidates, domain.GeneCandidate{
			Symbol:               gene.Symbol,
			ModuleID:             moduleID,
			SupportScore:         support,
			StabilityScore:       gene.StabilityScore,
			Classification:       gene.Classification,
			SupportingPhenotypes: supporting,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SupportScore != candidates[j].SupportScore {
			return candidates[i].SupportScore > candidates[j].SupportScore
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	return candidates, nil
}

// sortByMagnitude orders explainability items by |contribution| descending,
// ties broken by phenotype id for determinism.
func sortByMagnitude(items []domain.ExplainabilityItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := math.Abs(items[i].Contribution), math.Abs(items[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return items[i].PhenotypeID < items[j].PhenotypeID
	})
}

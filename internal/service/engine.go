// Package service wires the scoring and prediction engines, the data
// provider, and the query cache into the single facade every surface
// (HTTP API, MCP tools, sessions) talks to.
package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/cache"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/prediction"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/scoring"
)

// alternativeModuleLimit bounds how many runner-up modules contribute
// alternative gene candidates, and alternativeGeneLimit how many genes each.
const (
	alternativeModuleLimit = 4
	alternativeGeneLimit   = 3
)

// Engine is the query facade over the scoring and prediction engines.
type Engine struct {
	provider  domain.DataProvider
	scorer    *scoring.Engine
	predictor *prediction.Engine
	cache     *cache.MemoryCache
	logger    *logrus.Logger
}

// NewEngine creates the service facade. The cache may be nil to disable
// result caching.
func NewEngine(
	provider domain.DataProvider,
	scorer *scoring.Engine,
	predictor *prediction.Engine,
	queryCache *cache.MemoryCache,
	logger *logrus.Logger,
) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		provider:  provider,
		scorer:    scorer,
		predictor: predictor,
		cache:     queryCache,
		logger:    logger,
	}
}

// ResolveInputs maps free-text phenotype inputs to canonical identifiers.
// Inputs that resolve to neither an identifier nor a known name are returned
// verbatim in unmatched; they never default to any phenotype. Duplicates
// collapse, and an input appearing in both lists stays in both sets.
func (e *Engine) ResolveInputs(observed, excluded []string) (scoring.PhenotypeSet, scoring.PhenotypeSet, []string) {
	observedSet := scoring.NewPhenotypeSet()
	excludedSet := scoring.NewPhenotypeSet()
	var unmatched []string
	seen := make(map[string]struct{})

	resolve := func(inputs []string, into scoring.PhenotypeSet) {
		for _, raw := range inputs {
			if id, ok := e.provider.ResolvePhenotype(raw); ok {
				into[id] = struct{}{}
				continue
			}
			key := strings.ToLower(strings.TrimSpace(raw))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			unmatched = append(unmatched, raw)
		}
	}
	resolve(observed, observedSet)
	resolve(excluded, excludedSet)
	return observedSet, excludedSet, unmatched
}

// Query runs the full pipeline: resolve inputs, rank modules, rank the best
// module's genes, predict missing phenotypes, and assemble the explanation.
// An empty resolved input is not an error; every module scores zero and the
// ranking falls back to ascending module-id order with confidence 0.
func (e *Engine) Query(ctx context.Context, params QueryParams) (*domain.QueryResult, error) {
	observed, excluded, unmatched := e.ResolveInputs(params.Observed, params.Excluded)

	key := cacheKey(observed, excluded, params.TopPredictions)
	if e.cache != nil && len(unmatched) == 0 {
		if cached := e.cache.Get(key); cached != nil {
			e.logger.WithField("key", key).Debug("Query cache hit")
			return cached, nil
		}
	}

	ranking := e.scorer.RankModules(observed, excluded)
	result := &domain.QueryResult{
		Ranking:         ranking,
		BestModule:      ranking.Best(),
		Observed:        observed.Sorted(),
		Excluded:        excluded.Sorted(),
		UnmatchedInputs: unmatched,
	}

	best := ranking.Best()
	if best != nil && best.Score > 0 {
		genes, err := e.scorer.RankGenes(best.ModuleID, observed)
		if err != nil {
			return nil, err
		}
		result.CandidateGenes = genes

		predicted, err := e.predictor.PredictMissing(best.ModuleID, observed, excluded, params.TopPredictions)
		if err != nil {
			return nil, err
		}
		result.PredictedPhenotypes = predicted

		questions, err := e.predictor.DiscriminativeQuestions(ranking, observed, excluded, 0)
		if err != nil {
			return nil, err
		}
		result.DiscriminativeQuestions = questions

		explanation, err := e.predictor.ExplainScoring(best.ModuleID, observed, excluded)
		if err != nil {
			return nil, err
		}
		result.Explanation = explanation

		alternatives, err := e.alternativeGenes(ranking, observed)
		if err != nil {
			return nil, err
		}
		result.AlternativeGenes = alternatives
	}

	if e.cache != nil && len(unmatched) == 0 {
		e.cache.Set(key, result)
	}

	e.logger.WithFields(logrus.Fields{
		"observed":  len(observed),
		"excluded":  len(excluded),
		"unmatched": len(unmatched),
		"best":      bestModuleID(best),
	}).Info("Phenotype query completed")
	return result, nil
}

// alternativeGenes collects the strongest candidates from the runner-up
// modules that still scored positive.
func (e *Engine) alternativeGenes(ranking domain.ModuleRanking, observed scoring.PhenotypeSet) ([]domain.GeneCandidate, error) {
	var out []domain.GeneCandidate
	for i := 1; i < len(ranking.Matches) && i <= alternativeModuleLimit; i++ {
		match := ranking.Matches[i]
		if match.Score <= 0 {
			break
		}
		genes, err := e.scorer.RankGenes(match.ModuleID, observed)
		if err != nil {
			return nil, err
		}
		if len(genes) > alternativeGeneLimit {
			genes = genes[:alternativeGeneLimit]
		}
		out = append(out, genes...)
	}
	return out, nil
}

// QueryGene looks up a single gene and returns its module context: the full
// gene ranking of its module (without phenotype support) and the module's
// characteristic phenotypes. A missing symbol is a NotFoundError.
func (e *Engine) QueryGene(ctx context.Context, symbol string) (*domain.GeneQueryResult, error) {
	gene, err := e.provider.Gene(symbol)
	if err != nil {
		return nil, err
	}

	moduleGenes, err := e.scorer.RankGenes(gene.ModuleID, nil)
	if err != nil {
		return nil, err
	}
	expected, err := e.predictor.ExpectedPhenotypes(gene.ModuleID, 0)
	if err != nil {
		return nil, err
	}

	return &domain.GeneQueryResult{
		Symbol:                   gene.Symbol,
		ModuleID:                 gene.ModuleID,
		StabilityScore:           gene.StabilityScore,
		Classification:           gene.Classification,
		ModuleGenes:              moduleGenes,
		CharacteristicPhenotypes: expected,
	}, nil
}

// SuggestNext resolves the inputs, ranks modules, and returns the single
// most discriminative next question. A nil prediction means no further
// question is available.
func (e *Engine) SuggestNext(ctx context.Context, observed, excluded []string) (*domain.PhenotypePrediction, []string, error) {
	observedSet, excludedSet, unmatched := e.ResolveInputs(observed, excluded)
	ranking := e.scorer.RankModules(observedSet, excludedSet)
	next, err := e.predictor.SuggestNextQuestion(ranking, observedSet, excludedSet)
	if err != nil {
		return nil, unmatched, err
	}
	return next, unmatched, nil
}

// ModuleSummary describes one module for browsing surfaces.
func (e *Engine) ModuleSummary(ctx context.Context, moduleID int, topPhenotypes int) (*domain.ModuleSummary, error) {
	module, err := e.provider.Module(moduleID)
	if err != nil {
		return nil, err
	}
	genes, err := e.provider.ModuleGenes(moduleID)
	if err != nil {
		return nil, err
	}

	var core []string
	for _, g := range genes {
		if g.Classification == domain.StabilityCore {
			core = append(core, g.Symbol)
		}
	}

	expected, err := e.predictor.ExpectedPhenotypes(moduleID, topPhenotypes)
	if err != nil {
		return nil, err
	}

	return &domain.ModuleSummary{
		ModuleID:      module.ID,
		TotalGenes:    module.GeneCount(),
		CoreGenes:     core,
		TopPhenotypes: expected,
	}, nil
}

// ModuleSummaries returns a summary per module in ascending id order.
func (e *Engine) ModuleSummaries(ctx context.Context, topPhenotypes int) ([]*domain.ModuleSummary, error) {
	modules := e.provider.Modules()
	out := make([]*domain.ModuleSummary, 0, len(modules))
	for _, m := range modules {
		summary, err := e.ModuleSummary(ctx, m.ID, topPhenotypes)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// SearchPhenotypes returns phenotypes whose name or identifier contains the
// query, case-insensitively, capped at limit. An empty query lists all.
func (e *Engine) SearchPhenotypes(query string, limit int) []domain.PhenotypeRef {
	query = strings.ToLower(strings.TrimSpace(query))
	all := e.provider.AllPhenotypes()

	var out []domain.PhenotypeRef
	for _, ref := range all {
		if query != "" &&
			!strings.Contains(strings.ToLower(ref.Name), query) &&
			!strings.Contains(strings.ToLower(string(ref.ID)), query) {
			continue
		}
		out = append(out, ref)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Predictor exposes the prediction engine for surfaces that address a
// module directly instead of going through a full query.
func (e *Engine) Predictor() *prediction.Engine {
	return e.predictor
}

// InvalidateCache drops every cached query result. Called after reloading
// the source tables.
func (e *Engine) InvalidateCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// cacheKey canonicalizes the resolved input sets into a stable key.
func cacheKey(observed, excluded scoring.PhenotypeSet, topN int) string {
	var b strings.Builder
	writeSet := func(s scoring.PhenotypeSet) {
		for i, id := range s.Sorted() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(id))
		}
	}
	b.WriteString("obs:")
	writeSet(observed)
	b.WriteString("|exc:")
	writeSet(excluded)
	b.WriteString("|top:")
	b.WriteString(strconv.Itoa(topN))
	return b.String()
}

// bestModuleID is a logging helper tolerating an empty ranking.
func bestModuleID(best *domain.ModuleMatch) int {
	if best == nil {
		return -1
	}
	return best.ModuleID
}

// QueryParams are the inputs of a phenotype query.
type QueryParams struct {
	// Observed phenotypes, as identifiers or human-readable names.
	Observed []string `json:"observed"`
	// Excluded phenotypes confirmed absent.
	Excluded []string `json:"excluded,omitempty"`
	// TopPredictions caps the missing-phenotype list; 0 uses the default.
	TopPredictions int `json:"top_predictions,omitempty"`
}

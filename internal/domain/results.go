package domain

// Result value structures returned by the scoring and prediction engines.
// These are closed types: every field the engines produce is enumerated here.

// ExplainabilityItem is one entry of the explainability trail backing a
// module or gene score. Contribution is positive for supporting phenotypes
// and negative for exclusion penalties.
type ExplainabilityItem struct {
	PhenotypeID  PhenotypeID `json:"phenotype_id"`
	Name         string      `json:"name"`
	Contribution float64     `json:"contribution"`
	Detail       string      `json:"detail,omitempty"`
}

// ModuleMatch is one module's scoring outcome within a ranking.
type ModuleMatch struct {
	ModuleID               int                  `json:"module_id"`
	Score                  float64              `json:"score"`
	GeneCount              int                  `json:"gene_count"`
	ContributingPhenotypes []ExplainabilityItem `json:"contributing_phenotypes"`
	PenalizedPhenotypes    []ExplainabilityItem `json:"penalized_phenotypes"`
}

// ModuleRanking is the full, materialized result of ranking all modules.
// Confidence is the relative separation of the top two scores: callers must
// treat it as a separation signal, not a probability. It is 0 whenever the
// top score is non-positive and can exceed 1 when the runner-up is negative.
type ModuleRanking struct {
	Matches    []ModuleMatch `json:"matches"`
	Confidence float64       `json:"confidence"`
}

// Best returns the top-ranked match, or nil for an empty ranking.
func (r *ModuleRanking) Best() *ModuleMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// GeneCandidate is a prioritized gene within a module.
type GeneCandidate struct {
	Symbol               string         `json:"symbol"`
	ModuleID             int            `json:"module_id"`
	SupportScore         float64        `json:"support_score"`
	StabilityScore       float64        `json:"stability_score"`
	Classification       StabilityClass `json:"classification"`
	SupportingPhenotypes []PhenotypeID  `json:"supporting_phenotypes"`
}

// PhenotypePrediction is a predicted missing, expected, or discriminative
// phenotype, with a human-readable reason.
type PhenotypePrediction struct {
	ID          PhenotypeID `json:"id"`
	Name        string      `json:"name"`
	Prevalence  float64     `json:"prevalence"`
	Specificity float64     `json:"specificity"`
	Reason      string      `json:"reason"`
}

// PhenotypeRef pairs a display name with its canonical identifier, for
// autocomplete and browsing surfaces.
type PhenotypeRef struct {
	ID   PhenotypeID `json:"id"`
	Name string      `json:"name"`
}

// QueryResult is the complete outcome of a phenotype query.
type QueryResult struct {
	Ranking                 ModuleRanking         `json:"ranking"`
	BestModule              *ModuleMatch          `json:"best_module,omitempty"`
	CandidateGenes          []GeneCandidate       `json:"candidate_genes"`
	AlternativeGenes        []GeneCandidate       `json:"alternative_genes,omitempty"`
	PredictedPhenotypes     []PhenotypePrediction `json:"predicted_phenotypes"`
	DiscriminativeQuestions []PhenotypePrediction `json:"discriminative_questions,omitempty"`
	Explanation             []ExplainabilityItem  `json:"explanation,omitempty"`
	Observed                []PhenotypeID         `json:"observed"`
	Excluded                []PhenotypeID         `json:"excluded"`
	UnmatchedInputs         []string              `json:"unmatched_inputs,omitempty"`
}

// GeneQueryResult is the outcome of a single-gene query: the gene's module
// context rather than a phenotype-driven ranking.
type GeneQueryResult struct {
	Symbol                   string                `json:"symbol"`
	ModuleID                 int                   `json:"module_id"`
	StabilityScore           float64               `json:"stability_score"`
	Classification           StabilityClass        `json:"classification"`
	ModuleGenes              []GeneCandidate       `json:"module_genes"`
	CharacteristicPhenotypes []PhenotypePrediction `json:"characteristic_phenotypes"`
}

// ModuleSummary describes one module for browsing surfaces.
type ModuleSummary struct {
	ModuleID      int                   `json:"module_id"`
	TotalGenes    int                   `json:"total_genes"`
	CoreGenes     []string              `json:"core_genes"`
	TopPhenotypes []PhenotypePrediction `json:"top_phenotypes"`
}

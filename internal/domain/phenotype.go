// Package domain defines the core data model for the MPV clinical decision
// support engine: phenotype profiles, disease modules, genes, and the value
// structures returned by the scoring and prediction components.
package domain

import (
	"strings"
)

// PhenotypeID is a canonical phenotype identifier (e.g. "HP:0000510").
type PhenotypeID string

// StabilityClass summarizes a gene's clustering confidence within its module.
type StabilityClass string

const (
	StabilityCore       StabilityClass = "core"
	StabilityPeripheral StabilityClass = "peripheral"
	StabilityUnstable   StabilityClass = "unstable"
)

// IsValid reports whether the stability class is one of the three known values.
func (s StabilityClass) IsValid() bool {
	switch s {
	case StabilityCore, StabilityPeripheral, StabilityUnstable:
		return true
	}
	return false
}

// Answer is a clinician's three-valued response to a phenotype question.
type Answer string

const (
	AnswerYes     Answer = "yes"
	AnswerNo      Answer = "no"
	AnswerUnknown Answer = "unknown"
)

// ParseAnswer normalizes a textual answer to one of the three variants.
func ParseAnswer(s string) (Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return AnswerYes, true
	case "no", "n":
		return AnswerNo, true
	case "unknown", "u":
		return AnswerUnknown, true
	}
	return "", false
}

// PhenotypeProfile holds one phenotype's statistics within one module.
// Prevalence and specificity are percentages in [0,100]; the raw gene
// membership lists they were derived from are retained for explainability.
type PhenotypeProfile struct {
	ID           PhenotypeID `json:"id"`
	Name         string      `json:"name"`
	Prevalence   float64     `json:"prevalence"`
	Specificity  float64     `json:"specificity"`
	GenesWith    []string    `json:"genes_with"`
	GenesWithout []string    `json:"genes_without,omitempty"`
}

// Weight is the phenotype's per-observation contribution to a module score.
func (p *PhenotypeProfile) Weight() float64 {
	return (p.Prevalence + p.Specificity) / 200.0
}

// Module is an immutable disease cluster. Instances are built once by the
// data provider and must not be mutated afterwards.
type Module struct {
	ID         int                               `json:"id"`
	Phenotypes map[PhenotypeID]*PhenotypeProfile `json:"phenotypes"`
	Genes      []string                          `json:"genes"`
}

// GeneCount returns the number of genes assigned to the module.
func (m *Module) GeneCount() int {
	return len(m.Genes)
}

// Phenotype returns the profile for the given identifier, or nil when the
// module carries no profile for it. Absence is informative, not an error.
func (m *Module) Phenotype(id PhenotypeID) *PhenotypeProfile {
	return m.Phenotypes[id]
}

// Gene describes a single gene. A gene belongs to exactly one module.
type Gene struct {
	Symbol         string         `json:"symbol"`
	ModuleID       int            `json:"module_id"`
	StabilityScore float64        `json:"stability_score"`
	Classification StabilityClass `json:"classification"`
}

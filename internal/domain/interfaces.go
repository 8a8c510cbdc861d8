package domain

// DataProvider exposes the read-only tables the scoring and prediction
// engines compute over. Implementations must be safe for unsynchronized
// concurrent reads: tables are built once and never mutated afterwards.
type DataProvider interface {
	// Module returns the module for the given id, or a NotFoundError when
	// the id is outside the configured module-id set.
	Module(id int) (*Module, error)

	// Gene returns the gene for the given symbol. Lookup is case-sensitive
	// on the canonical symbol; a miss is a NotFoundError.
	Gene(symbol string) (*Gene, error)

	// ResolvePhenotype maps a human-readable name (case-insensitive) or a
	// canonical identifier to the canonical identifier. The second return
	// is false for unresolved inputs; they must never map to a default.
	ResolvePhenotype(text string) (PhenotypeID, bool)

	// Modules returns every module in ascending id order.
	Modules() []*Module

	// ModuleGenes returns the genes assigned to a module.
	ModuleGenes(id int) ([]*Gene, error)

	// ModulesWithPhenotype returns the ids of modules whose profile set
	// contains the phenotype, in ascending order.
	ModulesWithPhenotype(id PhenotypeID) []int

	// AllPhenotypes returns every known phenotype sorted by display name.
	AllPhenotypes() []PhenotypeRef
}

// Package dataset loads the module phenotype profiles and the gene
// classification table, and exposes them as an immutable, process-wide
// read-only snapshot behind the domain.DataProvider interface.
package dataset

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// Stability thresholds. Classification is derived from the stability score
// when the source table does not carry an explicit class.
const (
	stabilityCoreMin       = 0.7
	stabilityPeripheralMin = 0.4
)

// classifyStability maps a stability score to its three-way class.
func classifyStability(score float64) domain.StabilityClass {
	switch {
	case score >= stabilityCoreMin:
		return domain.StabilityCore
	case score >= stabilityPeripheralMin:
		return domain.StabilityPeripheral
	default:
		return domain.StabilityUnstable
	}
}

// snapshot is one complete, immutable table set. A new snapshot replaces the
// old one atomically so no in-flight query ever observes a partial reload.
type snapshot struct {
	modules          map[int]*domain.Module
	moduleIDs        []int
	genes            map[string]*domain.Gene
	moduleGenes      map[int][]*domain.Gene
	phenotypeModules map[domain.PhenotypeID][]int
	nameIndex        map[string]domain.PhenotypeID
	phenotypes       []domain.PhenotypeRef
}

// Provider implements domain.DataProvider over the loaded tables.
type Provider struct {
	current atomic.Pointer[snapshot]
	logger  *logrus.Logger
}

// NewProvider creates an empty provider. Call Load before issuing queries.
func NewProvider(logger *logrus.Logger) *Provider {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Provider{logger: logger}
	p.current.Store(&snapshot{
		modules:          map[int]*domain.Module{},
		genes:            map[string]*domain.Gene{},
		moduleGenes:      map[int][]*domain.Gene{},
		phenotypeModules: map[domain.PhenotypeID][]int{},
		nameIndex:        map[string]domain.PhenotypeID{},
	})
	return p
}

// Load reads the module profile CSVs from dir and the gene classification
// CSV, builds the lookup indexes, and publishes the new snapshot atomically.
func (p *Provider) Load(dir, geneFile string) error {
	genes, err := loadGeneTable(geneFile)
	if err != nil {
		return fmt.Errorf("failed to load gene table: %w", err)
	}

	modules, err := loadModuleProfiles(dir)
	if err != nil {
		return fmt.Errorf("failed to load module profiles: %w", err)
	}

	snap, err := buildSnapshot(modules, genes)
	if err != nil {
		return err
	}
	p.current.Store(snap)

	p.logger.WithFields(logrus.Fields{
		"modules":    len(snap.moduleIDs),
		"genes":      len(snap.genes),
		"phenotypes": len(snap.phenotypeModules),
	}).Info("Data tables loaded")
	return nil
}

// buildSnapshot assembles the indexes and verifies table integrity.
func buildSnapshot(modules map[int]*domain.Module, genes map[string]*domain.Gene) (*snapshot, error) {
	snap := &snapshot{
		modules:          modules,
		genes:            genes,
		moduleGenes:      make(map[int][]*domain.Gene),
		phenotypeModules: make(map[domain.PhenotypeID][]int),
		nameIndex:        make(map[string]domain.PhenotypeID),
	}

	for id := range modules {
		snap.moduleIDs = append(snap.moduleIDs, id)
	}
	sort.Ints(snap.moduleIDs)

	// Gene assignments: every gene must point at a known module.
	for _, g := range genes {
		m, ok := modules[g.ModuleID]
		if !ok {
			return nil, fmt.Errorf("gene %s references unknown module %d", g.Symbol, g.ModuleID)
		}
		m.Genes = append(m.Genes, g.Symbol)
		snap.moduleGenes[g.ModuleID] = append(snap.moduleGenes[g.ModuleID], g)
	}
	for id := range snap.moduleGenes {
		gs := snap.moduleGenes[id]
		sort.Slice(gs, func(i, j int) bool { return gs[i].Symbol < gs[j].Symbol })
		sort.Strings(modules[id].Genes)
	}

	// Reverse indexes: phenotype -> modules, lowercased name -> id.
	seen := make(map[domain.PhenotypeID]string)
	for _, id := range snap.moduleIDs {
		for phenoID, pheno := range modules[id].Phenotypes {
			snap.phenotypeModules[phenoID] = append(snap.phenotypeModules[phenoID], id)
			lower := strings.ToLower(pheno.Name)
			if _, exists := snap.nameIndex[lower]; !exists {
				snap.nameIndex[lower] = phenoID
			}
			if _, exists := seen[phenoID]; !exists {
				seen[phenoID] = pheno.Name
			}
		}
	}
	for phenoID := range snap.phenotypeModules {
		sort.Ints(snap.phenotypeModules[phenoID])
	}

	for phenoID, name := range seen {
		snap.phenotypes = append(snap.phenotypes, domain.PhenotypeRef{ID: phenoID, Name: name})
	}
	sort.Slice(snap.phenotypes, func(i, j int) bool {
		if snap.phenotypes[i].Name != snap.phenotypes[j].Name {
			return snap.phenotypes[i].Name < snap.phenotypes[j].Name
		}
		return snap.phenotypes[i].ID < snap.phenotypes[j].ID
	})

	return snap, nil
}

// Module implements domain.DataProvider.
func (p *Provider) Module(id int) (*domain.Module, error) {
	m, ok := p.current.Load().modules[id]
	if !ok {
		return nil, domain.NewModuleNotFound(id)
	}
	return m, nil
}

// Gene implements domain.DataProvider. Lookup is case-sensitive.
func (p *Provider) Gene(symbol string) (*domain.Gene, error) {
	g, ok := p.current.Load().genes[symbol]
	if !ok {
		return nil, domain.NewGeneNotFound(symbol)
	}
	return g, nil
}

// ResolvePhenotype implements domain.DataProvider. Identifiers are matched
// exactly; names are matched case-insensitively. Unresolved inputs return
// false, never a default phenotype.
func (p *Provider) ResolvePhenotype(text string) (domain.PhenotypeID, bool) {
	snap := p.current.Load()
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	id := domain.PhenotypeID(text)
	if _, ok := snap.phenotypeModules[id]; ok {
		return id, true
	}
	if resolved, ok := snap.nameIndex[strings.ToLower(text)]; ok {
		return resolved, true
	}
	return "", false
}

// Modules implements domain.DataProvider.
func (p *Provider) Modules() []*domain.Module {
	snap := p.current.Load()
	out := make([]*domain.Module, 0, len(snap.moduleIDs))
	for _, id := range snap.moduleIDs {
		out = append(out, snap.modules[id])
	}
	return out
}

// ModuleGenes implements domain.DataProvider.
func (p *Provider) ModuleGenes(id int) ([]*domain.Gene, error) {
	snap := p.current.Load()
	if _, ok := snap.modules[id]; !ok {
		return nil, domain.NewModuleNotFound(id)
	}
	return snap.moduleGenes[id], nil
}

// ModulesWithPhenotype implements domain.DataProvider.
func (p *Provider) ModulesWithPhenotype(id domain.PhenotypeID) []int {
	return p.current.Load().phenotypeModules[id]
}

// AllPhenotypes implements domain.DataProvider.
func (p *Provider) AllPhenotypes() []domain.PhenotypeRef {
	return p.current.Load().phenotypes
}

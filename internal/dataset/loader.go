package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// Source table columns. The module profile files are exported one per
// module (module_<id>.csv), mirroring the sheets of the upstream workbook.
const (
	colGene           = "gene"
	colModuleID       = "module_id"
	colStabilityScore = "stability_score"
	colClassification = "classification"

	colPhenoID      = "hpo_id"
	colPhenoName    = "phenotype_name"
	colPrevalence   = "target_module_phenotype_prevalence_percent"
	colSpecificity  = "target_module_share_of_phenotype_percent"
	colGenesWith    = "target_module_genes_with_phenotype"
	colGenesWithout = "target_module_genes_without_phenotype"
)

var (
	moduleFilePattern = regexp.MustCompile(`^module_(\d+)\.csv$`)
	geneListSeparator = regexp.MustCompile(`[,\s]+`)
)

// headerIndex maps column names to positions, verifying required columns.
func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return idx, nil
}

// parseGeneList splits a comma- or whitespace-separated gene cell.
func parseGeneList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := geneListSeparator.Split(value, -1)
	genes := make([]string, 0, len(parts))
	for _, g := range parts {
		if g = strings.TrimSpace(g); g != "" {
			genes = append(genes, g)
		}
	}
	return genes
}

// loadGeneTable reads the gene classification CSV. Classification falls back
// to the stability thresholds when the column is empty or unknown.
func loadGeneTable(path string) (map[string]*domain.Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty gene table", path)
	}

	idx, err := headerIndex(records[0], colGene, colModuleID, colStabilityScore)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	classIdx, hasClass := idx[colClassification]

	genes := make(map[string]*domain.Gene, len(records)-1)
	for line, rec := range records[1:] {
		symbol := strings.TrimSpace(rec[idx[colGene]])
		if symbol == "" {
			continue
		}
		if _, dup := genes[symbol]; dup {
			return nil, fmt.Errorf("%s: duplicate gene %s", path, symbol)
		}

		moduleID, err := strconv.Atoi(strings.TrimSpace(rec[idx[colModuleID]]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad module id: %w", path, line+2, err)
		}
		stability, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[colStabilityScore]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad stability score: %w", path, line+2, err)
		}
		if stability < 0 || stability > 1 {
			return nil, fmt.Errorf("%s line %d: stability score %v outside [0,1]", path, line+2, stability)
		}

		class := classifyStability(stability)
		if hasClass {
			if c := domain.StabilityClass(strings.ToLower(strings.TrimSpace(rec[classIdx]))); c.IsValid() {
				class = c
			}
		}

		genes[symbol] = &domain.Gene{
			Symbol:         symbol,
			ModuleID:       moduleID,
			StabilityScore: stability,
			Classification: class,
		}
	}
	return genes, nil
}

// loadModuleProfiles reads every module_<id>.csv in dir.
func loadModuleProfiles(dir string) (map[int]*domain.Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	modules := make(map[int]*domain.Module)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := moduleFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])

		module, err := loadModuleProfile(filepath.Join(dir, entry.Name()), id)
		if err != nil {
			return nil, err
		}
		modules[id] = module
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("no module profile files (module_<id>.csv) in %s", dir)
	}
	return modules, nil
}

// loadModuleProfile reads one module's phenotype profile table.
func loadModuleProfile(path string, id int) (*domain.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty module profile", path)
	}

	idx, err := headerIndex(records[0], colPhenoID, colPhenoName, colPrevalence, colSpecificity, colGenesWith)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	withoutIdx, hasWithout := idx[colGenesWithout]

	module := &domain.Module{
		ID:         id,
		Phenotypes: make(map[domain.PhenotypeID]*domain.PhenotypeProfile, len(records)-1),
	}
	for line, rec := range records[1:] {
		phenoID := domain.PhenotypeID(strings.TrimSpace(rec[idx[colPhenoID]]))
		if phenoID == "" {
			continue
		}
		if _, dup := module.Phenotypes[phenoID]; dup {
			return nil, fmt.Errorf("%s line %d: duplicate phenotype %s", path, line+2, phenoID)
		}

		prevalence, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[colPrevalence]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad prevalence: %w", path, line+2, err)
		}
		specificity, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[colSpecificity]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad specificity: %w", path, line+2, err)
		}
		if prevalence < 0 || prevalence > 100 {
			return nil, fmt.Errorf("%s line %d: prevalence %v outside [0,100]", path, line+2, prevalence)
		}
		if specificity < 0 || specificity > 100 {
			return nil, fmt.Errorf("%s line %d: specificity %v outside [0,100]", path, line+2, specificity)
		}

		profile := &domain.PhenotypeProfile{
			ID:          phenoID,
			Name:        strings.TrimSpace(rec[idx[colPhenoName]]),
			Prevalence:  prevalence,
			Specificity: specificity,
			GenesWith:   parseGeneList(rec[idx[colGenesWith]]),
		}
		if hasWithout {
			profile.GenesWithout = parseGeneList(rec[withoutIdx])
		}
		module.Phenotypes[phenoID] = profile
	}
	return module, nil
}

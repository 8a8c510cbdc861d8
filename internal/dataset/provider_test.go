package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

const geneCSV = `gene,module_id,stability_score,classification
ABCA4,1,0.85,core
RPGR,1,0.20,
USH2A,1,0.50,peripheral
MYO7A,2,0.90,core
`

const module1CSV = `hpo_id,phenotype_name,target_module_phenotype_prevalence_percent,target_module_share_of_phenotype_percent,target_module_genes_with_phenotype,target_module_genes_without_phenotype
HP:0000510,Rod-cone dystrophy,80,60,"ABCA4, USH2A",RPGR
HP:0000518,Cataract,40,30,USH2A,"ABCA4, RPGR"
`

const module2CSV = `hpo_id,phenotype_name,target_module_phenotype_prevalence_percent,target_module_share_of_phenotype_percent,target_module_genes_with_phenotype,target_module_genes_without_phenotype
HP:0000510,Rod-cone dystrophy,30,30,MYO7A,
HP:0000365,Hearing impairment,90,70,MYO7A,
`

// writeFixture lays out a data directory with the standard test tables.
func writeFixture(t *testing.T) (dir, geneFile string) {
	t.Helper()
	dir = t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "module_1.csv"), []byte(module1CSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module_2.csv"), []byte(module2CSV), 0644))

	geneFile = filepath.Join(dir, "genes.csv")
	require.NoError(t, os.WriteFile(geneFile, []byte(geneCSV), 0644))
	return dir, geneFile
}

func loadedProvider(t *testing.T) *Provider {
	t.Helper()
	dir, geneFile := writeFixture(t)
	p := NewProvider(nil)
	require.NoError(t, p.Load(dir, geneFile))
	return p
}

func TestLoad(t *testing.T) {
	p := loadedProvider(t)

	modules := p.Modules()
	require.Len(t, modules, 2)
	assert.Equal(t, 1, modules[0].ID)
	assert.Equal(t, 2, modules[1].ID)

	m1 := modules[0]
	require.Len(t, m1.Phenotypes, 2)
	rcd := m1.Phenotype("HP:0000510")
	require.NotNil(t, rcd)
	assert.Equal(t, "Rod-cone dystrophy", rcd.Name)
	assert.Equal(t, 80.0, rcd.Prevalence)
	assert.Equal(t, 60.0, rcd.Specificity)
	assert.Equal(t, []string{"ABCA4", "USH2A"}, rcd.GenesWith)
	assert.Equal(t, []string{"RPGR"}, rcd.GenesWithout)

	// Genes attach to their modules sorted by symbol.
	assert.Equal(t, []string{"ABCA4", "RPGR", "USH2A"}, m1.Genes)
}

func TestGeneClassification(t *testing.T) {
	p := loadedProvider(t)

	tests := []struct {
		symbol string
		want   domain.StabilityClass
	}{
		{"ABCA4", domain.StabilityCore},       // explicit class
		{"RPGR", domain.StabilityUnstable},    // empty column, score 0.20
		{"USH2A", domain.StabilityPeripheral}, // explicit class
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			g, err := p.Gene(tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Classification)
		})
	}
}

func TestClassifyStability(t *testing.T) {
	assert.Equal(t, domain.StabilityCore, classifyStability(0.7))
	assert.Equal(t, domain.StabilityCore, classifyStability(1.0))
	assert.Equal(t, domain.StabilityPeripheral, classifyStability(0.4))
	assert.Equal(t, domain.StabilityPeripheral, classifyStability(0.69))
	assert.Equal(t, domain.StabilityUnstable, classifyStability(0.39))
	assert.Equal(t, domain.StabilityUnstable, classifyStability(0))
}

func TestResolvePhenotype(t *testing.T) {
	p := loadedProvider(t)

	tests := []struct {
		name  string
		input string
		want  domain.PhenotypeID
		ok    bool
	}{
		{"by identifier", "HP:0000510", "HP:0000510", true},
		{"by name", "Rod-cone dystrophy", "HP:0000510", true},
		{"name is case-insensitive", "rod-CONE Dystrophy", "HP:0000510", true},
		{"trims whitespace", "  Cataract ", "HP:0000518", true},
		{"unknown text", "Night blindness", "", false},
		{"unknown identifier", "HP:9999999", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := p.ResolvePhenotype(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestLookupMisses(t *testing.T) {
	p := loadedProvider(t)

	_, err := p.Module(99)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	_, err = p.Gene("NOPE")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	// Case-sensitive gene lookup.
	_, err = p.Gene("abca4")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	_, err = p.ModuleGenes(99)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestModulesWithPhenotype(t *testing.T) {
	p := loadedProvider(t)

	assert.Equal(t, []int{1, 2}, p.ModulesWithPhenotype("HP:0000510"))
	assert.Equal(t, []int{2}, p.ModulesWithPhenotype("HP:0000365"))
	assert.Empty(t, p.ModulesWithPhenotype("HP:9999999"))
}

func TestAllPhenotypes(t *testing.T) {
	p := loadedProvider(t)

	refs := p.AllPhenotypes()
	require.Len(t, refs, 3)
	// Sorted by display name.
	assert.Equal(t, "Cataract", refs[0].Name)
	assert.Equal(t, "Hearing impairment", refs[1].Name)
	assert.Equal(t, "Rod-cone dystrophy", refs[2].Name)
}

func TestLoadRejectsGeneWithUnknownModule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module_1.csv"), []byte(module1CSV), 0644))

	geneFile := filepath.Join(dir, "genes.csv")
	bad := "gene,module_id,stability_score,classification\nABCA4,7,0.85,core\n"
	require.NoError(t, os.WriteFile(geneFile, []byte(bad), 0644))

	p := NewProvider(nil)
	err := p.Load(dir, geneFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown module")
}

func TestLoadKeepsServingOldSnapshotOnFailure(t *testing.T) {
	p := loadedProvider(t)

	err := p.Load(t.TempDir(), "missing.csv")
	require.Error(t, err)

	// The previous tables remain queryable.
	_, err = p.Module(1)
	assert.NoError(t, err)
}

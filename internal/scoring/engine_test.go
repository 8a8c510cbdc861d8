package scoring

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// stubProvider implements domain.DataProvider over in-memory tables.
type stubProvider struct {
	modules map[int]*domain.Module
	genes   map[string]*domain.Gene
}

func (p *stubProvider) Module(id int) (*domain.Module, error) {
	m, ok := p.modules[id]
	if !ok {
		return nil, domain.NewModuleNotFound(id)
	}
	return m, nil
}

func (p *stubProvider) Gene(symbol string) (*domain.Gene, error) {
	g, ok := p.genes[symbol]
	if !ok {
		return nil, domain.NewGeneNotFound(symbol)
	}
	return g, nil
}

func (p *stubProvider) ResolvePhenotype(text string) (domain.PhenotypeID, bool) {
	for _, m := range p.modules {
		if ph := m.Phenotype(domain.PhenotypeID(text)); ph != nil {
			return ph.ID, true
		}
	}
	return "", false
}

func (p *stubProvider) Modules() []*domain.Module {
	ids := make([]int, 0, len(p.modules))
	for id := range p.modules {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*domain.Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.modules[id])
	}
	return out
}

func (p *stubProvider) ModuleGenes(id int) ([]*domain.Gene, error) {
	if _, ok := p.modules[id]; !ok {
		return nil, domain.NewModuleNotFound(id)
	}
	var out []*domain.Gene
	for _, g := range p.genes {
		if g.ModuleID == id {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (p *stubProvider) ModulesWithPhenotype(id domain.PhenotypeID) []int {
	var out []int
	for mid, m := range p.modules {
		if m.Phenotype(id) != nil {
			out = append(out, mid)
		}
	}
	sort.Ints(out)
	return out
}

func (p *stubProvider) AllPhenotypes() []domain.PhenotypeRef {
	seen := map[domain.PhenotypeID]string{}
	for _, m := range p.modules {
		for id, ph := range m.Phenotypes {
			seen[id] = ph.Name
		}
	}
	var out []domain.PhenotypeRef
	for id, name := range seen {
		out = append(out, domain.PhenotypeRef{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func pheno(id, name string, prevalence, specificity float64, genesWith ...string) *domain.PhenotypeProfile {
	return &domain.PhenotypeProfile{
		ID:          domain.PhenotypeID(id),
		Name:        name,
		Prevalence:  prevalence,
		Specificity: specificity,
		GenesWith:   genesWith,
	}
}

// newTestProvider builds the two-module fixture used throughout the scoring
// and prediction tests.
func newTestProvider() *stubProvider {
	m1 := &domain.Module{
		ID: 1,
		Phenotypes: map[domain.PhenotypeID]*domain.PhenotypeProfile{
			"HP:0000510": pheno("HP:0000510", "Rod-cone dystrophy", 80, 60, "ABCA4", "USH2A"),
			"HP:0000518": pheno("HP:0000518", "Cataract", 40, 30, "USH2A"),
			"HP:0007754": pheno("HP:0007754", "Macular dystrophy", 30, 30, "ABCA4"),
		},
		Genes: []string{"ABCA4", "RPGR", "USH2A"},
	}
	m2 := &domain.Module{
		ID: 2,
		Phenotypes: map[domain.PhenotypeID]*domain.PhenotypeProfile{
			"HP:0000510": pheno("HP:0000510", "Rod-cone dystrophy", 30, 30, "MYO7A"),
			"HP:0000365": pheno("HP:0000365", "Hearing impairment", 90, 70, "MYO7A"),
		},
		Genes: []string{"MYO7A"},
	}
	return &stubProvider{
		modules: map[int]*domain.Module{1: m1, 2: m2},
		genes: map[string]*domain.Gene{
			"ABCA4": {Symbol: "ABCA4", ModuleID: 1, StabilityScore: 0.85, Classification: domain.StabilityCore},
			"RPGR":  {Symbol: "RPGR", ModuleID: 1, StabilityScore: 0.20, Classification: domain.StabilityUnstable},
			"USH2A": {Symbol: "USH2A", ModuleID: 1, StabilityScore: 0.50, Classification: domain.StabilityPeripheral},
			"MYO7A": {Symbol: "MYO7A", ModuleID: 2, StabilityScore: 0.90, Classification: domain.StabilityCore},
		},
	}
}

func newTestEngine() *Engine {
	return NewEngine(newTestProvider(), domain.DefaultScoringConfig(), nil)
}

func TestScoreModule(t *testing.T) {
	engine := newTestEngine()
	provider := engine.provider

	m1, err := provider.Module(1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		observed PhenotypeSet
		excluded PhenotypeSet
		want     float64
	}{
		{
			name:     "single observed phenotype",
			observed: NewPhenotypeSet("HP:0000510"),
			want:     0.70, // (80+60)/200
		},
		{
			name:     "observed with exclusion penalty",
			observed: NewPhenotypeSet("HP:0000510"),
			excluded: NewPhenotypeSet("HP:0000518"),
			want:     0.6125, // 0.70 - 0.5*(40+30)/400
		},
		{
			name:     "phenotype absent from module contributes zero",
			observed: NewPhenotypeSet("HP:0000510", "HP:0000365"),
			want:     0.70,
		},
		{
			name: "exclusions alone drive the score negative",
			excluded: NewPhenotypeSet(
				"HP:0000510", // -0.5*140/400 = -0.175
				"HP:0000518", // -0.5*70/400  = -0.0875
			),
			want: -0.2625,
		},
		{
			name: "empty input scores zero",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _, _ := engine.ScoreModule(m1, tt.observed, tt.excluded)
			assert.InDelta(t, tt.want, score, 1e-9)
		})
	}
}

func TestScoreModuleExplanation(t *testing.T) {
	engine := newTestEngine()
	m1, err := engine.provider.Module(1)
	require.NoError(t, err)

	_, contributing, penalized := engine.ScoreModule(m1,
		NewPhenotypeSet("HP:0000510", "HP:0007754"),
		NewPhenotypeSet("HP:0000518"),
	)

	require.Len(t, contributing, 2)
	// Ordered by contribution magnitude descending.
	assert.Equal(t, domain.PhenotypeID("HP:0000510"), contributing[0].PhenotypeID)
	assert.InDelta(t, 0.70, contributing[0].Contribution, 1e-9)
	assert.Equal(t, domain.PhenotypeID("HP:0007754"), contributing[1].PhenotypeID)
	assert.InDelta(t, 0.30, contributing[1].Contribution, 1e-9)

	require.Len(t, penalized, 1)
	assert.InDelta(t, -0.0875, penalized[0].Contribution, 1e-9)
}

func TestRankModules(t *testing.T) {
	engine := newTestEngine()

	ranking := engine.RankModules(NewPhenotypeSet("HP:0000510"), nil)
	require.Len(t, ranking.Matches, 2)

	assert.Equal(t, 1, ranking.Matches[0].ModuleID)
	assert.InDelta(t, 0.70, ranking.Matches[0].Score, 1e-9)
	assert.Equal(t, 2, ranking.Matches[1].ModuleID)
	assert.InDelta(t, 0.30, ranking.Matches[1].Score, 1e-9)

	// Confidence is the relative separation of the top two scores.
	assert.InDelta(t, (0.70-0.30)/0.70, ranking.Confidence, 1e-9)
}

func TestRankModulesEmptyInput(t *testing.T) {
	engine := newTestEngine()

	ranking := engine.RankModules(nil, nil)
	require.Len(t, ranking.Matches, 2)

	// All scores zero; ties fall back to ascending module id.
	assert.Equal(t, 1, ranking.Matches[0].ModuleID)
	assert.Equal(t, 2, ranking.Matches[1].ModuleID)
	assert.Zero(t, ranking.Matches[0].Score)
	assert.Zero(t, ranking.Matches[1].Score)
	assert.Zero(t, ranking.Confidence)
}

func TestRankingConfidenceEdges(t *testing.T) {
	tests := []struct {
		name    string
		matches []domain.ModuleMatch
		want    float64
	}{
		{
			name: "zero when top score is zero",
			matches: []domain.ModuleMatch{
				{ModuleID: 1, Score: 0},
				{ModuleID: 2, Score: -0.1},
			},
			want: 0,
		},
		{
			name: "zero when top score is negative",
			matches: []domain.ModuleMatch{
				{ModuleID: 1, Score: -0.05},
				{ModuleID: 2, Score: -0.2},
			},
			want: 0,
		},
		{
			name: "exceeds one when runner-up is negative",
			matches: []domain.ModuleMatch{
				{ModuleID: 1, Score: 0.5},
				{ModuleID: 2, Score: -0.25},
			},
			want: 1.5,
		},
		{
			name: "single positive module treats runner-up as zero",
			matches: []domain.ModuleMatch{
				{ModuleID: 1, Score: 0.4},
			},
			want: 1,
		},
		{
			name:    "empty ranking",
			matches: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, rankingConfidence(tt.matches), 1e-9)
		})
	}
}

func TestRankGenes(t *testing.T) {
	engine := newTestEngine()

	// HP:0007754 (weight 0.3) is annotated to ABCA4 only.
	candidates, err := engine.RankGenes(1, NewPhenotypeSet("HP:0007754"))
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// ABCA4: 0.3 support + 0.1 core bonus.
	assert.Equal(t, "ABCA4", candidates[0].Symbol)
	assert.InDelta(t, 0.40, candidates[0].SupportScore, 1e-9)
	assert.Equal(t, []domain.PhenotypeID{"HP:0007754"}, candidates[0].SupportingPhenotypes)

	// USH2A: no support, peripheral, no adjustment.
	assert.Equal(t, "USH2A", candidates[1].Symbol)
	assert.InDelta(t, 0, candidates[1].SupportScore, 1e-9)

	// RPGR: no support, unstable penalty.
	assert.Equal(t, "RPGR", candidates[2].Symbol)
	assert.InDelta(t, -0.05, candidates[2].SupportScore, 1e-9)
}

func TestRankGenesTotalOrderWithoutSupport(t *testing.T) {
	engine := newTestEngine()

	candidates, err := engine.RankGenes(1, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Core bonus first, then peripheral, then unstable; every gene appears.
	assert.Equal(t, "ABCA4", candidates[0].Symbol)
	assert.Equal(t, "USH2A", candidates[1].Symbol)
	assert.Equal(t, "RPGR", candidates[2].Symbol)
}

func TestRankGenesUnknownModule(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.RankGenes(99, nil)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseGeneList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"comma separated", "ABCA4,USH2A", []string{"ABCA4", "USH2A"}},
		{"comma and space", "ABCA4, USH2A", []string{"ABCA4", "USH2A"}},
		{"whitespace separated", "ABCA4 USH2A RPGR", []string{"ABCA4", "USH2A", "RPGR"}},
		{"single", "ABCA4", []string{"ABCA4"}},
		{"empty", "", nil},
		{"only separators", " , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGeneList(tt.input))
		})
	}
}

func TestLoadGeneTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing required column",
			content: "gene,stability_score\nABCA4,0.8\n",
			wantErr: "missing required column",
		},
		{
			name: "duplicate gene",
			content: "gene,module_id,stability_score\n" +
				"ABCA4,1,0.8\nABCA4,1,0.9\n",
			wantErr: "duplicate gene",
		},
		{
			name:    "bad stability score",
			content: "gene,module_id,stability_score\nABCA4,1,high\n",
			wantErr: "bad stability score",
		},
		{
			name:    "stability score out of range",
			content: "gene,module_id,stability_score\nABCA4,1,1.5\n",
			wantErr: "outside [0,1]",
		},
		{
			name:    "bad module id",
			content: "gene,module_id,stability_score\nABCA4,one,0.8\n",
			wantErr: "bad module id",
		},
		{
			name:    "empty table",
			content: "",
			wantErr: "empty gene table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "genes.csv", tt.content)
			_, err := loadGeneTable(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadGeneTableSkipsBlankSymbols(t *testing.T) {
	content := "gene,module_id,stability_score\n" +
		"ABCA4,1,0.8\n" +
		",1,0.5\n"
	path := writeCSV(t, t.TempDir(), "genes.csv", content)

	genes, err := loadGeneTable(path)
	require.NoError(t, err)
	assert.Len(t, genes, 1)
}

func TestLoadModuleProfileErrors(t *testing.T) {
	header := "hpo_id,phenotype_name,target_module_phenotype_prevalence_percent," +
		"target_module_share_of_phenotype_percent,target_module_genes_with_phenotype\n"

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "duplicate phenotype",
			content: header + "HP:1,A,50,50,G1\nHP:1,A,60,60,G1\n",
			wantErr: "duplicate phenotype",
		},
		{
			name:    "prevalence out of range",
			content: header + "HP:1,A,120,50,G1\n",
			wantErr: "outside [0,100]",
		},
		{
			name:    "specificity out of range",
			content: header + "HP:1,A,50,-3,G1\n",
			wantErr: "outside [0,100]",
		},
		{
			name:    "bad prevalence",
			content: header + "HP:1,A,often,50,G1\n",
			wantErr: "bad prevalence",
		},
		{
			name:    "missing column",
			content: "hpo_id,phenotype_name\nHP:1,A\n",
			wantErr: "missing required column",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "module_1.csv", tt.content)
			_, err := loadModuleProfile(path, 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadModuleProfilesRequiresFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "notes.txt", "not a module table")

	_, err := loadModuleProfiles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no module profile files")
}

func TestModuleFilePattern(t *testing.T) {
	assert.True(t, moduleFilePattern.MatchString("module_1.csv"))
	assert.True(t, moduleFilePattern.MatchString("module_42.csv"))
	assert.False(t, moduleFilePattern.MatchString("module_.csv"))
	assert.False(t, moduleFilePattern.MatchString("module_1.csv.bak"))
	assert.False(t, moduleFilePattern.MatchString("genes.csv"))
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsSortedCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Greater(t, c.Len(), 11)

	skills := c.Skills()
	for i := 1; i < len(skills); i++ {
		assert.LessOrEqual(t, Normalize(skills[i-1].Name), Normalize(skills[i].Name), "目录应按规范名称排序")
	}
	assert.Equal(t, 3, c.MaxPhraseWords(), "Amazon Web Services / Google Cloud Platform 为三词")
}

func TestLookup_CaseInsensitiveAndSynonyms(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		term     string
		wantName string
		wantCat  string
	}{
		{"k8s", "Kubernetes", "devops"},
		{"K8S", "Kubernetes", "devops"},
		{"REACT.JS", "React", "frontend"},
		{"reactjs", "React", "frontend"},
		{"python 3", "Python", "programming"},
		{"Amazon   Web Services", "AWS", "cloud"},
		{"continuous integration", "CI/CD", "devops"},
		{"Scrum", "Agile", "methodology"},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, ok := c.Lookup(tt.term)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantCat, got.Category)
		})
	}

	_, ok := c.Lookup("cobol")
	assert.False(t, ok)
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	c := MustDefault()
	got, ok := c.Lookup("javascript")
	require.True(t, ok)
	assert.Equal(t, "JavaScript", got.Name, "javascript 不应命中 Java")

	got, ok = c.Lookup("  REACT.JS ")
	require.True(t, ok)
	assert.Equal(t, "React", got.Name)

	for _, term := range []string{"kube", "senior python developer", "docker compose files"} {
		_, ok = c.Lookup(term)
		assert.False(t, ok, term)
	}
}

func TestNew_FirstSortedEntryWinsOnSharedSynonym(t *testing.T) {
	c, err := New([]Skill{
		{Name: "Zeta", Category: "tooling", Synonyms: []string{"shared"}, Importance: 0.5},
		{Name: "Alpha", Category: "tooling", Synonyms: []string{"shared"}, Importance: 0.5},
	})
	require.NoError(t, err)
	got, ok := c.Lookup("SHARED")
	require.True(t, ok)
	assert.Equal(t, "Alpha", got.Name)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		skills []Skill
	}{
		{"空目录", nil},
		{"缺少名称", []Skill{{Name: " ", Category: "tooling", Importance: 0.5}}},
		{"重复名称", []Skill{
			{Name: "Go", Category: "programming", Importance: 0.5},
			{Name: "go", Category: "programming", Importance: 0.5},
		}},
		{"未知类别", []Skill{{Name: "Go", Category: "languages", Importance: 0.5}}},
		{"重要度越界", []Skill{{Name: "Go", Category: "programming", Importance: 1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.skills)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
skills:
  - name: Haskell
    category: programming
    synonyms: [GHC]
    importance: 0.4
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	got, ok := c.Lookup("ghc")
	require.True(t, ok)
	assert.Equal(t, "Haskell", got.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("skills: {"), 0644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestScan(t *testing.T) {
	c := MustDefault()

	text := "Languages: Python, JavaScript (ES6+), Go\nCloud: Amazon Web Services; k8s | Docker Compose\nREACT.JS, Continuous Integration."
	names := c.ScanNames(text)
	assert.Equal(t, []string{"AWS", "CI/CD", "Docker", "Go", "JavaScript", "Kubernetes", "Python", "React"}, names)
}

func TestScan_Deduplicates(t *testing.T) {
	c := MustDefault()
	names := c.ScanNames("Docker docker DOCKER Docker Swarm")
	assert.Equal(t, []string{"Docker"}, names)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"Skills", "C++", "C#", "Node.js", "CI/CD", "K8s"},
		Tokenize(`Skills: C++, C#; Node.js • "CI/CD" (K8s).`))
}

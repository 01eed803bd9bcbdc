package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Description string  `yaml:"description"`
	Globs       *string `yaml:"globs"`
	AlwaysApply bool    `yaml:"alwaysApply"`
}

func splitDocument(t *testing.T, doc string) (string, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(doc, "---\n"))
	rest := strings.TrimPrefix(doc, "---\n")
	header, body, found := strings.Cut(rest, "\n---\n")
	require.True(t, found, "closing delimiter missing")
	return header, body
}

func TestRender_Exact(t *testing.T) {
	got := Render("D", "S")
	want := "---\ndescription: \"get the summary of previous step: D\"\nglobs:\nalwaysApply: false\n---\nS"
	assert.Equal(t, want, got)
}

func TestRender_FrontMatterParses(t *testing.T) {
	header, body := splitDocument(t, Render("实现用户登录系统", "line one\nline two"))

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(header), &fm))
	assert.Equal(t, "get the summary of previous step: 实现用户登录系统", fm.Description)
	assert.Nil(t, fm.Globs)
	assert.False(t, fm.AlwaysApply)
	assert.Equal(t, "line one\nline two", body)
}

func TestRender_Verbatim(t *testing.T) {
	// Embedded quotes are not escaped, so the header stops being valid YAML.
	doc := Render(`say "hi"`, "---\nnot a header")
	assert.Contains(t, doc, `step: say "hi""`)
	assert.True(t, strings.HasSuffix(doc, "---\nnot a header"))

	header, _ := splitDocument(t, doc)
	var fm frontMatter
	assert.Error(t, yaml.Unmarshal([]byte(header), &fm))
}

package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/codescribe/pkg/model"
)

func sampleAnalysis() model.Analysis {
	return model.Analysis{
		Functions:            make([]model.FunctionInfo, 8),
		Classes:              make([]model.ClassInfo, 1),
		Exports:              []string{"AuthService"},
		Complexity:           model.ComplexityMedium,
		CyclomaticComplexity: 4,
		Metrics:              model.Metrics{MaintainabilityIndexText: "71.2"},
	}
}

func TestLoadDefault(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, []string{"API", "ARCHITECTURE", "JSDOC", "OPENAPI", "README"}, reg.DocTypes())
	assert.NotEmpty(t, reg.Version())

	tmpl, ok := reg.Lookup("readme")
	require.True(t, ok)
	assert.Contains(t, tmpl.User, "{{code}}")
	assert.Contains(t, tmpl.User, "{{baseContext}}")

	arch, ok := reg.Lookup("ARCHITECTURE")
	require.True(t, ok)
	assert.Contains(t, arch.System, "mermaid")
}

func TestBaseContext(t *testing.T) {
	got := BaseContext(sampleAnalysis())
	assert.Equal(t, "Functions: 8, Classes: 1, Exports: AuthService, Complexity: medium, Cyclomatic Complexity: 4, Maintainability Index: 71.2", got)

	empty := BaseContext(model.Analysis{Complexity: model.ComplexitySimple, CyclomaticComplexity: 1})
	assert.Contains(t, empty, "Exports: none")
}

func TestBuild(t *testing.T) {
	reg, err := NewRegistry("test-1", map[string]Template{
		"readme": {
			System: "Write docs for {{language}}.",
			User:   "Lang {{language}}\n{{baseContext}}\n{{code}}\n{{unknown}}",
		},
	})
	require.NoError(t, err)

	code := "const tpl = '{{language}}';"
	p, err := Build(reg, code, sampleAnalysis(), "README", "javascript")
	require.NoError(t, err)

	assert.Equal(t, "Write docs for javascript.", p.System)
	assert.Equal(t, "README", p.DocType)
	assert.Equal(t, "test-1", p.Version)
	assert.Contains(t, p.User, "```javascript\nconst tpl = '{{language}}';\n```")
	assert.Contains(t, p.User, "Exports: AuthService")
	assert.Contains(t, p.User, "{{unknown}}")
}

func TestBuildUnknownDocType(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	_, err = Build(reg, "x", model.Analysis{}, "POEM", "go")
	assert.Error(t, err)
}

func TestFenceCode(t *testing.T) {
	assert.Equal(t, "```python\nprint(1)\n```", FenceCode("print(1)", "python"))

	withFence := "doc = \"\"\"\n```\nexample\n```\n\"\"\"\n"
	fenced := FenceCode(withFence, "python")
	assert.True(t, strings.HasPrefix(fenced, "````python\n"))
	assert.True(t, strings.HasSuffix(fenced, "\n````"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	doc := `version: custom
docTypes:
  readme:
    system: s
    user: "u {{code}}"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", reg.Version())
	assert.Equal(t, []string{"README"}, reg.DocTypes())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewRegistryRejectsEmpty(t *testing.T) {
	_, err := NewRegistry("v", nil)
	assert.Error(t, err)

	_, err = NewRegistry("v", map[string]Template{"README": {System: "s"}})
	assert.Error(t, err)
}

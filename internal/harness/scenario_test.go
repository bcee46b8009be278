package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mrverify/internal/mapred"
)

const yamlCatalog = `
scenarios:
  - label: reduce count
    job:
      - reduce: {fun: count_inputs}
    verify: reduce_count
  - label: Link Next
    job:
      - link: {tag: next, keep: true}
      - map: {fun: key}
    verify: link_count
filter: [or, [[ends_with, "1"]], [[ends_with, "5"]]]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCatalog_YAML(t *testing.T) {
	cat, err := LoadCatalog(writeFile(t, "tests.def", yamlCatalog))
	require.NoError(t, err)

	require.Len(t, cat.Scenarios, 2)
	first := cat.Scenarios[0]
	assert.Equal(t, "reduce count", first.Label)
	assert.Equal(t, VerifyReduceCount, first.VerifierName)
	require.Len(t, first.Job, 1)
	assert.Equal(t, mapred.ReduceCountInputs, first.Job[0].Reduce.Fun)
	assert.NotNil(t, first.Verifier)

	second := cat.Scenarios[1]
	require.Len(t, second.Job, 2)
	require.NotNil(t, second.Job[0].Link)
	assert.Equal(t, "next", second.Job[0].Link.Tag)
	assert.True(t, second.Job[0].Link.Keep)

	require.NotNil(t, cat.Filter)
	assert.True(t, cat.Filter.Match("mrv15"))
	assert.False(t, cat.Filter.Match("mrv12"))
}

func TestLoadCatalog_NoFilterLeavesDefault(t *testing.T) {
	cat, err := LoadCatalog(writeFile(t, "t.yaml", `
scenarios:
  - label: keys
    job: [{map: {fun: key}}]
    verify: key_set
`))
	require.NoError(t, err)
	assert.Nil(t, cat.Filter)
}

func TestLoadCatalog_HuJSON(t *testing.T) {
	content := `{
  // sampled keys
  "scenarios": [
    {
      "label": "map keys",
      "job": [{"map": {"fun": "key"}}],
      "verify": "key_set", // trailing comma below
    },
  ],
  "filter": ["starts_with", "mrv1"],
}`
	cat, err := LoadCatalog(writeFile(t, "tests.hujson", content))
	require.NoError(t, err)
	require.Len(t, cat.Scenarios, 1)
	assert.Equal(t, "map keys", cat.Scenarios[0].Label)
	assert.True(t, cat.Filter.Match("mrv10"))
}

func TestLoadCatalog_CUE(t *testing.T) {
	content := `
#count: [{reduce: {fun: "count_inputs"}}]

scenarios: [
	{label: "reduce count", job: #count, verify: "reduce_count"},
	{label: "map values", job: [{map: {fun: "object_value"}}], verify: "entry_count"},
]
`
	cat, err := LoadCatalog(writeFile(t, "tests.cue", content))
	require.NoError(t, err)
	require.Len(t, cat.Scenarios, 2)
	assert.Equal(t, mapred.ReduceCountInputs, cat.Scenarios[0].Job[0].Reduce.Fun)
	assert.Equal(t, VerifyEntryCount, cat.Scenarios[1].VerifierName)
}

func TestLoadCatalog_CUEIncomplete(t *testing.T) {
	content := `scenarios: [{label: string, job: [], verify: "key_set"}]`
	_, err := LoadCatalog(writeFile(t, "tests.cue", content))
	require.Error(t, err)
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name:    "unknown field",
			file:    "t.def",
			content: "scenarios:\n  - label: x\n    job: [{map: {fun: key}}]\n    verify: key_set\n    verfy: oops\n",
			wantMsg: "verfy",
		},
		{
			name:    "unknown verifier",
			file:    "t.def",
			content: "scenarios:\n  - label: x\n    job: [{map: {fun: key}}]\n    verify: nope\n",
			wantMsg: "unknown verifier",
		},
		{
			name:    "empty scenarios",
			file:    "t.def",
			content: "scenarios: []\n",
			wantMsg: "non-empty",
		},
		{
			name:    "missing label",
			file:    "t.def",
			content: "scenarios:\n  - job: [{map: {fun: key}}]\n    verify: key_set\n",
			wantMsg: "label is required",
		},
		{
			name:    "duplicate label",
			file:    "t.def",
			content: "scenarios:\n  - {label: x, job: [{map: {fun: key}}], verify: key_set}\n  - {label: x, job: [{map: {fun: key}}], verify: key_set}\n",
			wantMsg: "duplicate label",
		},
		{
			name:    "bad phase",
			file:    "t.def",
			content: "scenarios:\n  - label: x\n    job: [{map: {fun: explode}}]\n    verify: key_set\n",
			wantMsg: "unknown map function",
		},
		{
			name:    "two kinds in one phase",
			file:    "t.def",
			content: "scenarios:\n  - label: x\n    job: [{map: {fun: key}, reduce: {fun: sort}}]\n    verify: key_set\n",
			wantMsg: "exactly one",
		},
		{
			name:    "bad filter",
			file:    "t.def",
			content: "scenarios:\n  - {label: x, job: [{map: {fun: key}}], verify: key_set}\nfilter: [frobnicate, x]\n",
			wantMsg: "filter",
		},
		{
			name:    "json unknown field",
			file:    "t.json",
			content: `{"scenarios": [{"label": "x", "job": [{"map": {"fun": "key"}}], "verify": "key_set", "extra": 1}]}`,
			wantMsg: "extra",
		},
		{
			name:    "unsupported extension",
			file:    "t.toml",
			content: "",
			wantMsg: "unsupported definition format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(writeFile(t, tt.file, tt.content))
			require.Error(t, err)

			var loadErr *DefinitionLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.def"))
	require.Error(t, err)

	var loadErr *DefinitionLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCatalog_ShippedDefinition(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join("..", "..", "priv", "tests.def"))
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Scenarios)
}

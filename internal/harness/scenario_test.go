package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
config:
  base_uri: "https://units.example/"
  auto_include: false
units:
  https://units.example/app.cue:
    body: "x: 1"
steps:
  - op: use
    ids: [app.x]
    auto_include: true
assertions:
  - type: binding
    id: x
    value: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", s.Name)
	require.NotNil(t, s.Config)
	assert.Equal(t, "https://units.example/", *s.Config.BaseURI)
	assert.False(t, *s.Config.AutoInclude)
	assert.Nil(t, s.Config.Strict)
	assert.Equal(t, "x: 1", s.Units["https://units.example/app.cue"].Body)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, []string{"app.x"}, s.Steps[0].ids())
	assert.True(t, *s.Steps[0].AutoInclude)
	assert.Equal(t, 1, s.Assertions[0].Value)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: a\ndescription: b\nflow: []\nsteps: [{op: include, id: a}]\n",
			wantErr: "field flow not found",
		},
		{
			name:    "missing name",
			content: "description: b\nsteps: [{op: include, id: a}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: a\nsteps: [{op: include, id: a}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: a\ndescription: b\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: a\ndescription: b\nsteps: [{op: fetch, id: a}]\n",
			wantErr: `unknown op "fetch"`,
		},
		{
			name:    "use without ids",
			content: "name: a\ndescription: b\nsteps: [{op: use}]\n",
			wantErr: "id or ids is required",
		},
		{
			name:    "from without rel",
			content: "name: a\ndescription: b\nsteps: [{op: from_use, id: a}]\n",
			wantErr: "id and rel are required",
		},
		{
			name:    "unknown error kind",
			content: "name: a\ndescription: b\nsteps: [{op: include, id: a, expect: {error: boom}}]\n",
			wantErr: `unknown error kind "boom"`,
		},
		{
			name:    "unknown assertion",
			content: "name: a\ndescription: b\nsteps: [{op: include, id: a}]\nassertions: [{type: magic}]\n",
			wantErr: `unknown assertion type "magic"`,
		},
		{
			name:    "trace_order without events",
			content: "name: a\ndescription: b\nsteps: [{op: include, id: a}]\nassertions: [{type: trace_order}]\n",
			wantErr: "events list is required",
		},
		{
			name:    "binding without value",
			content: "name: a\ndescription: b\nsteps: [{op: include, id: a}]\nassertions: [{type: binding, id: a}]\n",
			wantErr: "value or absent is required",
		},
		{
			name:    "requests without uri",
			content: "name: a\ndescription: b\nsteps: [{op: include, id: a}]\nassertions: [{type: requests, count: 1}]\n",
			wantErr: "uri is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTestdataScenariosParse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.Equal(t, filepath.Base(path), s.Name+".yaml", "scenario name matches file name")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `name: survey
description: two cluster sizes
steps:
  - name: small
    values:
      cluster.n: 128
      run.t_end: "2 Myr"
  - preset: plummer-small
    values:
      cluster.name: scripted
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "survey", s.Name)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "small", s.Steps[0].Name)
	assert.Equal(t, "step-2", s.Steps[1].Name, "unnamed steps get positional names")
}

func TestLoadScenarioRejectsBadInput(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeScenario(t, "name: empty\nsteps: []\n")
	_, err = LoadScenario(path)
	assert.ErrorContains(t, err, "no steps")

	path = writeScenario(t, "steps:\n  - preset: nope\n")
	_, err = LoadScenario(path)
	assert.ErrorContains(t, err, "unknown preset")
}

func TestStepConfigLayering(t *testing.T) {
	dir := t.TempDir()
	content := `cluster:
  n: 512
run:
  t_end: 20 Myr
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clusterlab.yaml"), []byte(content), 0o644))
	t.Chdir(dir)

	path := writeScenario(t, `steps:
  - name: override
    values:
      cluster.n: 64
  - name: inherit
    preset: plummer-small
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	cfg, err := s.StepConfig(0, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Cluster.N, "step values override the config file")
	assert.Equal(t, "20 Myr", cfg.Run.TEnd, "untouched keys come from the file")

	cfg, err = s.StepConfig(1, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Cluster.N, "file overrides the step preset")
	assert.Equal(t, "direct", cfg.Run.Code, "preset fills keys the file leaves alone")

	_, err = s.StepConfig(5, "", nil)
	assert.Error(t, err)
}

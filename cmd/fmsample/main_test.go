package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Wan-Video/fmsolvers"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "decay.toml")
	require.NoError(t, os.WriteFile(scenario, []byte(`
[solver]
num_steps = 12
order = 3
solver = "unipc"

[model]
kind = "decay"
rate = 0.5

[noise]
shape = [2, 3]
seed = 7

[export]
filename = "decay"
dir = "`+dir+`"
`), 0o644))
	rootCmd.SetArgs([]string{"run", scenario})
	require.NoError(t, rootCmd.Execute())

	matches, err := filepath.Glob(filepath.Join(dir, "steps-decay-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestModelFromViper(t *testing.T) {
	v := viper.New()
	m, err := modelFromViper(v)
	require.NoError(t, err)
	require.Equal(t, fmsolvers.GaussianFlow{Mean: 0.7, Std: 0.3}, m)

	v.Set("model.kind", "spiral")
	_, err = modelFromViper(v)
	require.Error(t, err)
}

func TestScheduleCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"schedule", "--steps", "4", "--skip", "logSNR", "--shift", "3"})
	require.NoError(t, rootCmd.Execute())
	rootCmd.SetArgs([]string{"schedule", "--skip", "karras"})
	require.ErrorIs(t, rootCmd.Execute(), fmsolvers.ErrConfig)
}

func TestConvergeCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "converge.png")
	rootCmd.SetArgs([]string{"converge", "--model", "decay", "--skip", "time_quadratic", "--steps", "5,10", "--reference", "100", "--plot", out})
	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(out)
	require.NoError(t, err)
}

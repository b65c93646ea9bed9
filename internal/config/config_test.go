package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 100, c.Profile.SampleSize)
	assert.Equal(t, 0.7, c.Profile.NumericThreshold)
	assert.Equal(t, 0.8, c.Split.Ratio)
	assert.True(t, c.Split.Stratify)
	assert.Equal(t, int64(42), c.Split.Seed)
	assert.Equal(t, 5, c.Split.MinPartition)
	assert.Equal(t, 0.7, c.Analysis.CorrelationThreshold)
	assert.Equal(t, 3.0, c.Analysis.ImbalanceRatio)
	assert.Equal(t, 50, c.Preprocessing.MaxCategories)
	assert.Equal(t, 100.0, c.Preprocessing.ScalingRange)
	assert.Equal(t, "minmax", c.Preprocessing.ScalingMethod)
	assert.Equal(t, backend.DefaultHyperparameters(), c.Model.Hyperparameters)
	assert.Equal(t, Default(), c)
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "studio.yaml")
	content := `
split:
  ratio: 0.6
  seed: 7
preprocessing:
  scaling_method: standard
model:
  hyperparameters:
    penalty: l1
    max_iterations: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SCIGO_STUDIO_SPLIT_SEED", "99")
	t.Setenv("SCIGO_STUDIO_ANALYSIS_IMBALANCE_RATIO", "5")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, c.Split.Ratio)
	assert.Equal(t, int64(99), c.Split.Seed, "env overrides the file")
	assert.Equal(t, 5.0, c.Analysis.ImbalanceRatio)
	assert.Equal(t, "standard", c.Preprocessing.ScalingMethod)
	assert.Equal(t, "l1", c.Model.Hyperparameters.Penalty)
	assert.Equal(t, 50, c.Model.Hyperparameters.MaxIterations)
	assert.Equal(t, 0.5, c.Model.Hyperparameters.LearningRate, "unset keys keep defaults")
}

func TestLoadHomeConfig(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, configDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		param string
	}{
		{"ratio", "SCIGO_STUDIO_SPLIT_RATIO", "1.5", "split.ratio"},
		{"scaling", "SCIGO_STUDIO_PREPROCESSING_SCALING_METHOD", "robust", "preprocessing.scaling_method"},
		{"penalty", "SCIGO_STUDIO_MODEL_HYPERPARAMETERS_PENALTY", "elasticnet", "penalty"},
		{"backend", "SCIGO_STUDIO_MODEL_BACKEND", "forest", "backend"},
		{"log level", "SCIGO_STUDIO_LOG_LEVEL", "loud", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.value)
			_, err := Load("")
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	c := Default()
	c.Split.Ratio = 0.75
	c.Model.Hyperparameters.Strength = 0.1
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Save(c, path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestSaveDefaultPath(t *testing.T) {
	home := isolate(t)
	require.NoError(t, Save(Default(), ""))
	_, err := os.Stat(filepath.Join(home, configDir, "config.yaml"))
	require.NoError(t, err)
}

func TestPipelineOptions(t *testing.T) {
	c := Default()
	c.Analysis.CorrelationThreshold = 0.9
	c.Preprocessing.ScalingMethod = "standard"

	opt, err := c.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.9, opt.Correlation.HighThreshold)
	assert.Equal(t, preprocessing.ScalingStandard, opt.Planner.ScalingMethod)
	assert.Equal(t, 0.8, opt.Sampling.Ratio)
	assert.Equal(t, backend.LogisticName, opt.Backend.Name())
	assert.Equal(t, c.Model.Hyperparameters, opt.Hyperparameters)
}

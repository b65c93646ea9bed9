// Package config loads scigo-studio settings from defaults, a YAML file and
// SCIGO_STUDIO_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/preprocessing"
	"github.com/YuminosukeSato/scigo-studio/sampling"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// EnvPrefix prefixes every environment override, e.g.
// SCIGO_STUDIO_SPLIT_RATIO=0.75.
const EnvPrefix = "SCIGO_STUDIO"

const configDir = ".scigo-studio"

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ProfileConfig controls column type inference.
type ProfileConfig struct {
	SampleSize       int     `mapstructure:"sample_size" yaml:"sample_size"`
	NumericThreshold float64 `mapstructure:"numeric_threshold" yaml:"numeric_threshold"`
	MaxTargetClasses int     `mapstructure:"max_target_classes" yaml:"max_target_classes"`
}

type SplitConfig struct {
	Ratio        float64 `mapstructure:"ratio" yaml:"ratio"`
	Stratify     bool    `mapstructure:"stratify" yaml:"stratify"`
	Seed         int64   `mapstructure:"seed" yaml:"seed"`
	MinPartition int     `mapstructure:"min_partition" yaml:"min_partition"`
	MaxStrata    int     `mapstructure:"max_strata" yaml:"max_strata"`
}

type AnalysisConfig struct {
	CorrelationThreshold float64 `mapstructure:"correlation_threshold" yaml:"correlation_threshold"`
	ImbalanceRatio       float64 `mapstructure:"imbalance_ratio" yaml:"imbalance_ratio"`
}

type PreprocessingConfig struct {
	MaxCategories int     `mapstructure:"max_categories" yaml:"max_categories"`
	ScalingRange  float64 `mapstructure:"scaling_range" yaml:"scaling_range"`
	ScalingMethod string  `mapstructure:"scaling_method" yaml:"scaling_method"`
}

type ModelConfig struct {
	Backend         string                  `mapstructure:"backend" yaml:"backend"`
	Hyperparameters backend.Hyperparameters `mapstructure:"hyperparameters" yaml:"hyperparameters"`
}

// Config is the full application configuration.
type Config struct {
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Profile       ProfileConfig       `mapstructure:"profile" yaml:"profile"`
	Split         SplitConfig         `mapstructure:"split" yaml:"split"`
	Analysis      AnalysisConfig      `mapstructure:"analysis" yaml:"analysis"`
	Preprocessing PreprocessingConfig `mapstructure:"preprocessing" yaml:"preprocessing"`
	Model         ModelConfig         `mapstructure:"model" yaml:"model"`
}

func setDefaults(v *viper.Viper) {
	hp := backend.DefaultHyperparameters()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("profile.sample_size", dataset.DefaultSampleSize)
	v.SetDefault("profile.numeric_threshold", dataset.DefaultNumericThreshold)
	v.SetDefault("profile.max_target_classes", dataset.DefaultMaxTargetClasses)

	v.SetDefault("split.ratio", 0.8)
	v.SetDefault("split.stratify", true)
	v.SetDefault("split.seed", 42)
	v.SetDefault("split.min_partition", sampling.DefaultMinPartition)
	v.SetDefault("split.max_strata", sampling.DefaultMaxStrata)

	v.SetDefault("analysis.correlation_threshold", stats.DefaultHighCorrelation)
	v.SetDefault("analysis.imbalance_ratio", stats.DefaultImbalanceRatio)

	v.SetDefault("preprocessing.max_categories", preprocessing.DefaultMaxCategories)
	v.SetDefault("preprocessing.scaling_range", preprocessing.DefaultScalingRange)
	v.SetDefault("preprocessing.scaling_method", string(preprocessing.ScalingMinMax))

	v.SetDefault("model.backend", backend.LogisticName)
	v.SetDefault("model.hyperparameters.learning_rate", hp.LearningRate)
	v.SetDefault("model.hyperparameters.max_iterations", hp.MaxIterations)
	v.SetDefault("model.hyperparameters.penalty", hp.Penalty)
	v.SetDefault("model.hyperparameters.strength", hp.Strength)
	v.SetDefault("model.hyperparameters.seed", hp.Seed)
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// defaults alone always decode
	_ = v.Unmarshal(&c)
	return &c
}

// Load reads configuration with the precedence env > config file >
// defaults. An explicit cfgFile must exist; otherwise config.yaml is looked
// up in the working directory and ~/.scigo-studio, and may be absent.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, configDir))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as YAML to path, or to ~/.scigo-studio/config.yaml when
// path is empty.
func Save(c *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "resolve home dir")
		}
		path = filepath.Join(home, configDir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write config")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json", "cloud":
	default:
		return errors.NewValidationError("log.format", "must be one of console, json, cloud", c.Log.Format)
	}
	if c.Profile.NumericThreshold <= 0 || c.Profile.NumericThreshold > 1 {
		return errors.NewValidationError("profile.numeric_threshold", "must be in (0, 1]", c.Profile.NumericThreshold)
	}
	if c.Profile.MaxTargetClasses < 2 {
		return errors.NewValidationError("profile.max_target_classes", "must be at least 2", c.Profile.MaxTargetClasses)
	}
	if c.Split.Ratio <= 0 || c.Split.Ratio >= 1 {
		return errors.NewValidationError("split.ratio", "must be in (0, 1)", c.Split.Ratio)
	}
	if c.Analysis.CorrelationThreshold <= 0 || c.Analysis.CorrelationThreshold >= 1 {
		return errors.NewValidationError("analysis.correlation_threshold", "must be in (0, 1)", c.Analysis.CorrelationThreshold)
	}
	if c.Analysis.ImbalanceRatio < 1 {
		return errors.NewValidationError("analysis.imbalance_ratio", "must be at least 1", c.Analysis.ImbalanceRatio)
	}
	switch preprocessing.ScalingMethod(c.Preprocessing.ScalingMethod) {
	case preprocessing.ScalingMinMax, preprocessing.ScalingStandard:
	default:
		return errors.NewValidationError("preprocessing.scaling_method", "must be minmax or standard", c.Preprocessing.ScalingMethod)
	}
	if _, err := backend.New(c.Model.Backend); err != nil {
		return err
	}
	return c.Model.Hyperparameters.Validate()
}

// PipelineOptions maps the configuration onto orchestrator options. The
// logger and clock are left for the caller.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	b, err := backend.New(c.Model.Backend)
	if err != nil {
		return pipeline.Options{}, err
	}
	opt := pipeline.DefaultOptions()
	opt.Classifier = dataset.Classifier{
		SampleSize:       c.Profile.SampleSize,
		NumericThreshold: c.Profile.NumericThreshold,
		MaxTargetClasses: c.Profile.MaxTargetClasses,
	}
	opt.Sampling = sampling.Options{
		Ratio:        c.Split.Ratio,
		Stratify:     c.Split.Stratify,
		Seed:         c.Split.Seed,
		MinPartition: c.Split.MinPartition,
		MaxStrata:    c.Split.MaxStrata,
	}
	opt.Correlation = stats.CorrelationOptions{
		SampleSize:       c.Profile.SampleSize,
		NumericThreshold: c.Profile.NumericThreshold,
		HighThreshold:    c.Analysis.CorrelationThreshold,
	}
	opt.Planner = preprocessing.Options{
		MaxCategories: c.Preprocessing.MaxCategories,
		ScalingRange:  c.Preprocessing.ScalingRange,
		ScalingMethod: preprocessing.ScalingMethod(c.Preprocessing.ScalingMethod),
	}
	opt.ImbalanceRatio = c.Analysis.ImbalanceRatio
	opt.Hyperparameters = c.Model.Hyperparameters
	opt.Backend = b
	return opt, nil
}

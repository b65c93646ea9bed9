// Package cli wires the analysis pipeline to a cobra command tree.
package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-studio/internal/config"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
	"github.com/YuminosukeSato/scigo-studio/report"
)

// app is the state shared by every subcommand after the root pre-run.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg     *config.Config
	session string
	logger  log.Logger
}

// NewRootCommand builds the scigo-studio command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "scigo-studio",
		Short:         "Guided logistic-regression analysis of tabular data",
		Long:          "scigo-studio profiles a CSV file, walks it through split, correlation, exploration, preprocessing, training and evaluation, and exports a reusable model file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml or ~/.scigo-studio/config.yaml)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	f.StringVar(&a.logFormat, "log-format", "", "log format: console, json, cloud (overrides config)")

	root.AddCommand(
		newProfileCommand(a),
		newRunCommand(a),
		newPredictCommand(a),
		newInspectCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	provider, err := log.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.session = uuid.NewString()
	a.logger = provider.GetLoggerWithName("cli").With(log.SessionIDKey, a.session)
	a.logger.Debug("session started", "command", cmd.Name())
	return nil
}

// writeTo runs fn against path, or stdout when path is "" or "-".
func writeTo(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, v interface{}, format report.Format) error {
	switch format {
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "flush yaml")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encode json")
	}
}

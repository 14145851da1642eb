// Package main provides the CLI entrypoint for rowgraph.
//
// rowgraph inspects YAML mapping files without the Go types they name:
//   - columns and ddl list the storage schema every entity tree collects
//   - check validates a mapping file and prints its diagnostics
//   - resolve hydrates the fields of an entity from a JSON row
//   - save and show store rows in a SQLite database and read them back
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"rowgraph/codec"
	"rowgraph/driver"
	"rowgraph/internal/logging"
	"rowgraph/internal/mapping"
	"rowgraph/node"
)

var version = "0.1.0"

// settings are read from flags, ROWGRAPH_* environment variables and an
// optional config file, in that order of precedence.
type settings struct {
	Mapping     string
	Dialect     string
	Database    string
	LogLevel    string
	LogEncoding string
}

func loadSettings(v *viper.Viper) (settings, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	s := settings{
		Mapping:     v.GetString("mapping"),
		Dialect:     v.GetString("dialect"),
		Database:    v.GetString("database"),
		LogLevel:    v.GetString("log-level"),
		LogEncoding: v.GetString("log-encoding"),
	}

	if s.Mapping == "" {
		return s, fmt.Errorf("no mapping file: use --mapping or ROWGRAPH_MAPPING")
	}

	return s, nil
}

// app is what every command needs: the settings, a logger and the trees of
// the mapping file.
type app struct {
	settings settings
	logger   *zap.Logger
	file     *mapping.MappingFile
	out      io.Writer
	errOut   io.Writer
}

func newApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	s, err := loadSettings(v)
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = s.LogLevel
	cfg.Encoding = s.LogEncoding

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}

	mf, err := mapping.LoadFile(s.Mapping)
	if err != nil {
		return nil, err
	}

	if s.Dialect == "" {
		s.Dialect = mf.Dialect
	}

	return &app{settings: s, logger: logger, file: mf, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}, nil
}

// build constructs schema-only trees, so no Go types are needed.
func (a *app) build() ([]*mapping.Entity, error) {
	entities, diags := mapping.Build(a.file, mapping.Options{SchemaOnly: true})

	for _, w := range diags.Warnings {
		if w.Code != "unknown_type" {
			a.logger.Warn(w.Message, zap.String("code", w.Code), zap.String("path", w.Path))
		}
	}

	if err := diags.Error(); err != nil {
		return nil, err
	}

	return entities, nil
}

func (a *app) driver() (*driver.Driver, error) {
	entities, err := a.build()
	if err != nil {
		return nil, err
	}

	dialect, err := codec.ParseDialect(a.settings.Dialect)
	if err != nil {
		return nil, err
	}

	return driver.New(entities, node.Runtime{Dialect: dialect}, a.logger)
}

// newSetup binds flags to v and returns the per-command app constructor. A
// binding failure is reported by every command.
func newSetup(v *viper.Viper, flags *pflag.FlagSet) func(*cobra.Command) (*app, error) {
	if err := v.BindPFlags(flags); err != nil {
		return func(*cobra.Command) (*app, error) {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	return func(cmd *cobra.Command) (*app, error) {
		return newApp(cmd, v)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ROWGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "rowgraph",
		Short:         "rowgraph - inspect and run row <-> object graph mapping files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("mapping", "m", "", "Path to the YAML mapping file")
	flags.String("config", "", "Path to a config file with default settings (optional)")
	flags.String("dialect", "", "Storage dialect (generic, sqlite, postgres, mysql); defaults to the mapping file")
	flags.String("database", "rowgraph.db", "Path to the SQLite database used by save and show")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "Log encoding (json, console)")

	setup := newSetup(v, flags)

	root.AddCommand(
		newColumnsCmd(setup),
		newDDLCmd(setup),
		newCheckCmd(setup),
		newResolveCmd(setup),
		newSaveCmd(setup),
		newShowCmd(setup),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

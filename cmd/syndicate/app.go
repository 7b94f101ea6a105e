package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scamshield/syndicate/pkg/backend"
	"github.com/scamshield/syndicate/pkg/config"
	"github.com/scamshield/syndicate/pkg/store"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	cfgFile string // "" when defaults are in use
	log     *zap.SugaredLogger
	zlog    *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop().Sugar()}

	root := &cobra.Command{
		Use:   "syndicate",
		Short: "Fraud network graph for the ScamShield honeypot",
		Long: `syndicate visualises the fraud network uncovered by the ScamShield
honeypot: conversations with scammers and the phone numbers, UPI ids and
bank accounts they share, laid out by a force-directed simulation.

Examples:
  syndicate view                    # live graph from the intelligence API
  syndicate view --file graph.json  # graph from a file, reloaded on change
  syndicate export --file graph.json --format png,svg
  syndicate login                   # sign in and store an API token`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zlog != nil {
				_ = a.zlog.Sync()
			}
		},
	}
	root.SetVersionTemplate("syndicate {{.Version}}\n")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: nearest .syndicate/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging, mirrored to stderr outside the terminal UI")

	root.AddCommand(
		newInitCmd(a),
		newViewCmd(a),
		newExportCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newSettingsCmd(a),
		newHealthCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. Commands that own
// the terminal log only to the configured file.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg, a.cfgFile = cfg, path

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	zl, err := newLogger(level, logOutputs(cfg.Log.File, a.verbose && !ownsTerminal(cmd)))
	if err != nil {
		return err
	}
	a.zlog = zl
	a.log = zl.Sugar().With("command", cmd.Name())
	a.log.Debugw("Configuration loaded", "path", path, "backend", cfg.Backend.URL)
	return nil
}

// ownsTerminal reports whether cmd draws a full-screen interface.
func ownsTerminal(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "view", "login":
		return true
	}
	return false
}

// logOutputs lists the zap output paths: the log file, and stderr when
// requested.
func logOutputs(file string, stderr bool) []string {
	var out []string
	if file != "" {
		out = append(out, file)
	}
	if stderr || len(out) == 0 {
		out = append(out, "stderr")
	}
	return out
}

// newLogger builds a production JSON logger at level writing to outputs.
func newLogger(level string, outputs []string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	for _, o := range outputs {
		if o == "stderr" || o == "stdout" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(o), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating log directory")
		}
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.OutputPaths = outputs
	zc.ErrorOutputPaths = outputs
	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return l, nil
}

// openStore opens the session database.
func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Store.Path, store.WithLogger(a.log.Named("store")))
}

// newClient builds the backend client. The stored session token wins over
// the configured one; a 401 drops the stored token.
func (a *app) newClient(ctx context.Context, st *store.Store) (*backend.Client, error) {
	token := a.cfg.Backend.Token
	if st != nil {
		stored, err := st.Token(ctx)
		if err != nil {
			return nil, err
		}
		if stored != "" {
			token = stored
		}
	}
	bc := backend.Config{
		BaseURL:   a.cfg.Backend.URL,
		Token:     token,
		Timeout:   a.cfg.Backend.Timeout,
		GraphPath: a.cfg.Backend.GraphPath,
		Logger:    a.log.Named("backend"),
	}
	if st != nil {
		bc.OnUnauthorized = func() {
			if err := st.ClearToken(context.Background()); err != nil {
				a.log.Warnw("Failed to clear token after 401", "error", err)
				return
			}
			a.log.Infow("Cleared stored token after 401")
		}
	}
	return backend.NewClient(bc)
}

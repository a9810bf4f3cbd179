package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelops/internal/config"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	adminAddr  string
	corsCSV    string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "modelops",
		Short:         "Run the tracking server, train, export the staged model and serve it",
		SilenceUsage:  true,
		SilenceErrors: true,
		// no subcommand runs the full pipeline
		RunE: func(cmd *cobra.Command, args []string) error { return a.run(cmd.Context()) },
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("MODELOPS_CONFIG"), "Config file (.yaml/.yml/.json/.toml); defaults MODELOPS_CONFIG")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config and MODELOPS_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console|json")
	root.PersistentFlags().StringVar(&a.adminAddr, "admin-addr", "", "Admin API listen address, e.g. 127.0.0.1:9090 (overrides config)")
	root.PersistentFlags().StringVar(&a.corsCSV, "cors-origins", "", "Comma-separated CORS origins for the admin API; enables CORS")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return a.setup()
	}

	root.AddCommand(
		&cobra.Command{Use: "run", Short: "Run the full pipeline with the admin API", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		}},
		&cobra.Command{Use: "export", Short: "Export the staged model version once", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd.Context(), cmd.OutOrStdout())
		}},
		&cobra.Command{Use: "resolve", Short: "Print the version holding the configured stage", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd.Context(), cmd.OutOrStdout())
		}},
		&cobra.Command{Use: "version", Short: "Print the build version", Args: cobra.NoArgs, Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		}},
	)
	return root
}

// setup loads configuration and applies flag overrides.
func (a *app) setup() error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.adminAddr != "" {
		cfg.Admin.Addr = a.adminAddr
	}
	if origins := splitCSV(a.corsCSV); len(origins) > 0 {
		cfg.Admin.CORSEnabled = true
		cfg.Admin.CORSOrigins = origins
	}
	a.cfg = cfg
	a.log = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/airtable"
	"github.com/ajitpratap0/airtable/pkg/config"
	"github.com/ajitpratap0/airtable/pkg/json"
	"github.com/ajitpratap0/airtable/pkg/logger"
	"github.com/ajitpratap0/airtable/pkg/observability"
)

var version = "0.1.0"

// app holds the state shared by every subcommand
type app struct {
	v          *viper.Viper
	configFile string
	trace      bool

	out    io.Writer
	errOut io.Writer

	log      *zap.Logger
	client   *airtable.Client
	shutdown observability.Shutdown
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), out: out, errOut: errOut}
	a.v.SetDefault("log.level", "warn")

	root := &cobra.Command{
		Use:   "airtable",
		Short: "Command-line access to an Airtable base",
		Long: `airtable reads and writes an Airtable base through the REST API.

Credentials and settings come from --config, AIRTABLE_* environment
variables (a .env file is honored) or flags, in increasing priority.

Example:
  AIRTABLE_API_KEY=pat... airtable --base appXXXXXXXXXXXXXX records list Tasks --filter "{Status}='Todo'"`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML configuration file")
	flags.BoolVar(&a.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	flags.String("base", "", "Base id (AIRTABLE_BASE_ID)")
	flags.String("api-key", "", "Personal access token (AIRTABLE_API_KEY)")
	flags.String("endpoint", config.DefaultEndpoint, "REST API root")
	flags.String("content-endpoint", config.DefaultContentEndpoint, "Attachment upload root")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Int("max-concurrency", 5, "Maximum in-flight requests (0 = unlimited)")
	flags.Float64("requests-per-second", 5, "Request start rate (0 = unlimited)")
	flags.Duration("post-call-delay", 0, "Pause after every request")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		"base_id":             "base",
		"api_key":             "api-key",
		"endpoint":            "endpoint",
		"content_endpoint":    "content-endpoint",
		"timeout":             "timeout",
		"max_concurrency":     "max-concurrency",
		"requests_per_second": "requests-per-second",
		"post_call_delay":     "post-call-delay",
		"log.level":           "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		versionCmd(),
		schemaCmd(a),
		resolveCmd(a),
		recordsCmd(a),
		fieldsCmd(a),
		tablesCmd(a),
		uploadCmd(a),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// no client is needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "airtable v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setup loads configuration and builds the client
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}

	a.log, err = logger.New(cfg.Log)
	if err != nil {
		return err
	}

	if a.trace {
		a.shutdown, err = observability.InitStdoutTracing(observability.TracingConfig{
			ServiceName:    "airtable-cli",
			ServiceVersion: version,
			SamplingRate:   1,
			Output:         a.errOut,
		})
		if err != nil {
			return err
		}
	}

	a.client, err = airtable.NewFromConfig(cfg, airtable.WithLogger(a.log))
	if err != nil {
		return err
	}

	a.log.Debug("cli configured",
		zap.String("command", cmd.CommandPath()),
		zap.String("base_id", cfg.BaseID),
		zap.String("endpoint", cfg.Endpoint))
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var firstErr error
	if a.client != nil {
		firstErr = a.client.Close()
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return firstErr
}

// printJSON writes v as indented JSON
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

// warn prints a highlighted warning to stderr
func (a *app) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(a.errOut, "Warning: "+format+"\n", args...)
}

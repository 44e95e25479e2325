package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "conn",
		Short:         "HTTP and HTTPS load test",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// underscoreAliases lets --dry_run and friends resolve to their dashed names.
func underscoreAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.SetNormalizeFunc(underscoreAliases)

	// Target flags
	flags.StringP("input", "i", "", "Input URL (or file) to test. See -f option")
	flags.BoolP("file", "f", false, "Treat input as a file containing one URL per line")
	flags.String("format", "", "URL file format: lines, csv, json, yaml or har (default: by extension)")
	flags.String("csv-column", "url", "CSV column holding the URLs")
	flags.String("json-path", "", "gjson path selecting the URLs in a JSON file (default: whole document)")

	// Load shape flags
	flags.IntP("procs", "p", 1, "Number of simultaneous sessions")
	flags.IntP("threads", "t", 1, "Number of workers per session. Each worker opens one URL")
	flags.IntP("repeat", "r", 0, "Total number of sessions to run (default: procs)")
	flags.String("timeout", "100", "Timeout for each HTTP(S) request, in seconds or as a duration (e.g. 30s)")
	flags.String("sleep", "0", "Time to sleep prior to each request, in seconds (fractional allowed) or as a duration")
	flags.Bool("shuffle", false, "Shuffle the list of URLs at the start of each session")
	flags.Int("offset", 0, "Offset the input list by OFFSET*k elements on session k")
	flags.Int("skip", 0, "Skip the first N elements of the list. The list is a cycle")
	flags.Bool("dry-run", false, "Print URLs instead of opening them")
	flags.Int64("seed", 0, "Seed for --shuffle (0 picks one from the clock)")
	flags.String("user-agent", "", "User-Agent header sent with every request")

	// Output flags
	flags.BoolP("quiet", "q", false, "Do not print errors and URLs")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("progress", false, "Show a live progress line on stderr")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'http_req_failed:count < 1')")
	flags.Bool("fail-on-errors", false, "Exit non-zero when any request failed")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.Bool("version", false, "Print version and exit")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS when talking to the OTLP collector")
	flags.String("tracing-service-name", "", "Service name reported on spans (default: conn)")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of traces to sample, 0.0 to 1.0")
	flags.Bool("tracing-propagate", true, "Inject W3C trace headers into outgoing requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			var v string
			v, err = fs.GetString(name)
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}

	str("input", &cfg.Input)
	boolean("file", &cfg.InputIsFile)
	str("format", &cfg.Format)
	str("csv-column", &cfg.CSVColumn)
	str("json-path", &cfg.JSONPath)
	integer("procs", &cfg.Processes)
	integer("threads", &cfg.Threads)
	integer("repeat", &cfg.Repeat)
	boolean("shuffle", &cfg.Shuffle)
	integer("offset", &cfg.Offset)
	integer("skip", &cfg.Skip)
	boolean("dry-run", &cfg.DryRun)
	str("user-agent", &cfg.UserAgent)
	boolean("quiet", &cfg.Quiet)
	boolean("json-output", &cfg.JSONOutput)
	boolean("progress", &cfg.Progress)
	boolean("dashboard", &cfg.Dashboard)
	str("metrics-addr", &cfg.MetricsAddr)
	boolean("fail-on-errors", &cfg.FailOnErrors)
	str("log-level", &cfg.LogLevel)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	if err != nil {
		return err
	}

	if fs.Changed("timeout") {
		val, _ := fs.GetString("timeout")
		if cfg.Timeout, err = asSeconds(val); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	if fs.Changed("sleep") {
		val, _ := fs.GetString("sleep")
		if cfg.Sleep, err = asSeconds(val); err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
	}
	if fs.Changed("seed") {
		if cfg.Seed, err = fs.GetInt64("seed"); err != nil {
			return err
		}
	}
	if fs.Changed("threshold") {
		if cfg.Thresholds, err = fs.GetStringSlice("threshold"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-sample-rate") {
		if cfg.Tracing.SampleRate, err = fs.GetFloat64("tracing-sample-rate"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	return nil
}

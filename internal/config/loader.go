package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// ErrVersionRequested is returned after --version printed the build version.
var ErrVersionRequested = errors.New("version requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	if wantsVersion, _ := flagSet.GetBool("version"); wantsVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "conn %s\n", Version)
		return nil, ErrVersionRequested
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		CSVColumn:  "url",
		Processes:  1,
		Threads:    1,
		Timeout:    DefaultTimeout,
		LogLevel:   DefaultLogLevel,
		ConfigFile: configPath,
		Tracing:    TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Input = strings.TrimSpace(cfg.Input)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(cfg.Tracing.Protocol))

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.Input, []string{"input", "url", "target"}},
		{&cfg.Format, []string{"format"}},
		{&cfg.CSVColumn, []string{"csv_column", "csv-column", "csvcolumn"}},
		{&cfg.JSONPath, []string{"json_path", "json-path", "jsonpath"}},
		{&cfg.UserAgent, []string{"user_agent", "user-agent", "useragent"}},
		{&cfg.MetricsAddr, []string{"metrics_addr", "metrics-addr", "metricsaddr"}},
		{&cfg.LogLevel, []string{"log_level", "log-level", "loglevel"}},
	}
	for _, s := range strs {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = strings.TrimSpace(val)
	}

	ints := []struct {
		dst  *int
		keys []string
	}{
		{&cfg.Processes, []string{"procs", "processes"}},
		{&cfg.Threads, []string{"threads"}},
		{&cfg.Repeat, []string{"repeat"}},
		{&cfg.Offset, []string{"offset"}},
		{&cfg.Skip, []string{"skip"}},
	}
	for _, s := range ints {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	bools := []struct {
		dst  *bool
		keys []string
	}{
		{&cfg.InputIsFile, []string{"file", "input_is_file", "input-is-file"}},
		{&cfg.Shuffle, []string{"shuffle"}},
		{&cfg.DryRun, []string{"dry_run", "dry-run", "dryrun"}},
		{&cfg.Quiet, []string{"quiet"}},
		{&cfg.JSONOutput, []string{"json_output", "json-output", "jsonoutput"}},
		{&cfg.Progress, []string{"progress"}},
		{&cfg.Dashboard, []string{"dashboard"}},
		{&cfg.FailOnErrors, []string{"fail_on_errors", "fail-on-errors", "failonerrors"}},
	}
	for _, s := range bools {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		val, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = val
	}

	if raw, ok := lookupSetting(settings, "sleep"); ok {
		val, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
		cfg.Sleep = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "thresholds", "threshold"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

// parseTracing overlays a nested tracing block onto base.
func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	out := base

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if out.Endpoint, err = asString(raw); err != nil {
			return base, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if out.Protocol, err = asString(raw); err != nil {
			return base, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if out.Insecure, err = asBool(raw); err != nil {
			return base, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "service-name", "servicename"); ok {
		if out.ServiceName, err = asString(raw); err != nil {
			return base, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "sample-rate", "samplerate"); ok {
		if out.SampleRate, err = asFloat64(raw); err != nil {
			return base, fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return base, fmt.Errorf("propagate: %w", err)
		}
		out.Propagate = &val
	}
	return out, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netfilter/conn/internal/feeder"
)

// Version is stamped at build time with -ldflags "-X github.com/netfilter/conn/internal/config.Version=...".
var Version = "dev"

const (
	DefaultTimeout  = 100 * time.Second
	DefaultLogLevel = "info"
)

type Config struct {
	Input        string        `mapstructure:"input"`
	InputIsFile  bool          `mapstructure:"file"`
	Format       string        `mapstructure:"format"`
	CSVColumn    string        `mapstructure:"csv_column"`
	JSONPath     string        `mapstructure:"json_path"`
	Processes    int           `mapstructure:"procs"`
	Threads      int           `mapstructure:"threads"`
	Repeat       int           `mapstructure:"repeat"` // 0 means one session per process
	Timeout      time.Duration `mapstructure:"timeout"`
	Sleep        time.Duration `mapstructure:"sleep"`
	Shuffle      bool          `mapstructure:"shuffle"`
	Offset       int           `mapstructure:"offset"`
	Skip         int           `mapstructure:"skip"`
	DryRun       bool          `mapstructure:"dry_run"`
	Quiet        bool          `mapstructure:"quiet"`
	Seed         int64         `mapstructure:"seed"` // shuffle seed, 0 picks one from the clock
	UserAgent    string        `mapstructure:"user_agent"`
	JSONOutput   bool          `mapstructure:"json_output"`
	Progress     bool          `mapstructure:"progress"`
	Dashboard    bool          `mapstructure:"dashboard"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	Thresholds   []string      `mapstructure:"thresholds"`
	FailOnErrors bool          `mapstructure:"fail_on_errors"`
	LogLevel     string        `mapstructure:"log_level"`
	Tracing      TracingConfig `mapstructure:"tracing"`
	ConfigFile   string        `mapstructure:"-"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"` // nil follows Enabled
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether outgoing requests carry W3C trace headers.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// RepeatCount is the total number of sessions to run.
func (c Config) RepeatCount() int {
	if c.Repeat > 0 {
		return c.Repeat
	}
	return c.Processes
}

// TotalRequests is the number of requests the run issues.
func (c Config) TotalRequests() int {
	return c.RepeatCount() * c.Threads
}

// MaxSimultaneous is the peak number of requests in flight.
func (c Config) MaxSimultaneous() int {
	sessions := c.RepeatCount()
	if c.Processes < sessions {
		sessions = c.Processes
	}
	return sessions * c.Threads
}

// FeederOptions translates file-format settings for the feeder package.
func (c Config) FeederOptions() (feeder.Options, error) {
	format, err := feeder.ParseFormat(c.Format)
	if err != nil {
		return feeder.Options{}, err
	}
	return feeder.Options{
		Format:    format,
		CSVColumn: c.CSVColumn,
		JSONPath:  c.JSONPath,
	}, nil
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Input) == "" {
		issues = append(issues, "input is required (use --help for usage information)")
	}
	if c.Processes < 1 {
		issues = append(issues, "procs must be >= 1")
	}
	if c.Threads < 1 {
		issues = append(issues, "threads must be >= 1")
	}
	if c.Repeat < 0 {
		issues = append(issues, "repeat must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Sleep < 0 {
		issues = append(issues, "sleep must be >= 0")
	}
	if _, err := feeder.ParseFormat(c.Format); err != nil {
		issues = append(issues, err.Error())
	}
	if !c.InputIsFile && strings.TrimSpace(c.Format) != "" {
		issues = append(issues, "format only applies when the input is a file (-f)")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Dashboard && c.Progress {
		issues = append(issues, "dashboard and progress are mutually exclusive")
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			issues = append(issues, fmt.Sprintf("log-level: %v", err))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

// Warnings lists settings that are valid but deserve the operator's attention.
func (c Config) Warnings() []string {
	var warnings []string
	if c.MaxSimultaneous() > 500 {
		warnings = append(warnings, fmt.Sprintf("High concurrency configured (%d simultaneous requests). Ensure you have authorization to test the target system.", c.MaxSimultaneous()))
	}
	if c.Shuffle && c.Offset != 0 {
		warnings = append(warnings, "offset is applied after shuffling, so per-session start positions are not deterministic")
	}
	return warnings
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if !t.Enabled() {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/netfilter/conn/internal/metrics"
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	Input      string        // URL or file name
	URLCount   int           // distinct URLs loaded
	Processes  int           // sessions running at once
	Threads    int           // workers per session
	Sessions   int           // total sessions (repeat)
	Timeout    time.Duration // per-request timeout
	Sleep      time.Duration // pause before each request
	Shuffle    bool
	Offset     int
	DryRun     bool
	ConfigFile string // Path to config file if used
}

// Dashboard renders a live terminal UI for run metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	sessionGauge   *widgets.Gauge
	statusList     *widgets.List
	hostList       *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	errorPara      *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	testDuration   time.Duration
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.sessionGauge = widgets.NewGauge()
	d.sessionGauge.Title = "Sessions Completed"
	d.sessionGauge.Percent = 0
	d.sessionGauge.BarColor = ui.ColorBlue
	d.sessionGauge.BorderStyle.Fg = ui.ColorCyan
	d.sessionGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Failed Statuses"
	d.statusList.Rows = []string{"No failures"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.hostList = widgets.NewList()
	d.hostList.Title = "Hosts"
	d.hostList.Rows = []string{"Awaiting data"}
	d.hostList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.hostList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	d.errorPara = widgets.NewParagraph()
	d.errorPara.Title = "Connection Errors"
	d.errorPara.Text = "No errors"
	d.errorPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.errorPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.sessionGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.errorPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.5, d.hostList),
			ui.NewCol(0.5, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.testDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.testDuration)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	if stats.MeanLatency > 0 {
		latencyMs := stats.MeanLatencyMs
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	d.sessionGauge.Percent = sessionPercent(stats.Sessions, d.runConfig.Sessions)
	d.sessionGauge.Label = fmt.Sprintf("%d / %d sessions", stats.Sessions, d.runConfig.Sessions)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Input: %s\n%s\nElapsed: %s | Requests: %d | Success Rate: %.1f%%",
		d.runConfig.Input,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		stats.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Requests:          %d\nIn Flight:         %d\nConnection Errors: %d\nBytes:             %.2f MB\nRate:              %.2f mbps\nRequests/sec:      %.2f\nSuccess Rate:      %.1f%%",
		stats.Total,
		stats.InFlight,
		stats.Failures,
		metrics.Megabytes(stats.Bytes),
		stats.Mbps,
		stats.RequestsPerSec,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
	)

	d.statusList.Rows = formatStatusListRows(stats.StatusBuckets)

	d.updateHostList(stats)
	d.updateErrorBreakdown(stats)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) updateHostList(stats metrics.Stats) {
	if len(stats.Hosts) == 0 {
		d.hostList.Rows = []string{"[No host data](fg:green)"}
		return
	}
	type hostRow struct {
		name string
		stat metrics.HostStats
	}
	rows := make([]hostRow, 0, len(stats.Hosts))
	for name, stat := range stats.Hosts {
		rows = append(rows, hostRow{name: name, stat: stat})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].stat.Total == rows[j].stat.Total {
			return rows[i].name < rows[j].name
		}
		return rows[i].stat.Total > rows[j].stat.Total
	})
	formatted := make([]string, 0, len(rows))
	for _, entry := range rows {
		share := 0.0
		if stats.Total > 0 {
			share = (float64(entry.stat.Total) / float64(stats.Total)) * 100
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | RPS %5.1f | P99 %5.1fms | Err %d | %.2f MB",
			entry.name,
			share,
			entry.stat.RequestsPerSec,
			entry.stat.P99LatencyMs,
			entry.stat.Failures,
			metrics.Megabytes(entry.stat.Bytes),
		))
	}
	d.hostList.Rows = formatted
}

func (d *Dashboard) updateErrorBreakdown(stats metrics.Stats) {
	if len(stats.Errors) == 0 {
		d.errorPara.Text = "[No connection errors](fg:green)"
		return
	}

	names := make([]string, 0, len(stats.Errors))
	for name := range stats.Errors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats.Errors[names[i]] == stats.Errors[names[j]] {
			return names[i] < names[j]
		}
		return stats.Errors[names[i]] > stats.Errors[names[j]]
	})

	// Limit to 4 classes to fit on screen
	lines := make([]string, 0, 4)
	for i, name := range names {
		if i >= 4 {
			break
		}
		lines = append(lines, fmt.Sprintf("[%s:](fg:white) [%d](fg:yellow)", name, stats.Errors[name]))
	}
	d.errorPara.Text = joinLines(lines)
}

func sessionPercent(done int64, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(done * 100 / int64(total))
	if percent > 100 {
		percent = 100
	}
	return percent
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func formatStatusListRows(buckets map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", strings.ToUpper(row.Code), row.Count))
	}
	return formatted
}

// formatRunParams formats the run configuration for display.
func (d *Dashboard) formatRunParams() string {
	cfg := d.runConfig
	parts := []string{
		fmt.Sprintf("URLs: %d", cfg.URLCount),
		fmt.Sprintf("Procs: %d", cfg.Processes),
		fmt.Sprintf("Threads: %d", cfg.Threads),
		fmt.Sprintf("Sessions: %d", cfg.Sessions),
	}

	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}
	if cfg.Sleep > 0 {
		parts = append(parts, fmt.Sprintf("Sleep: %s", cfg.Sleep))
	}
	if cfg.Shuffle {
		parts = append(parts, "Shuffled")
	}
	if cfg.Offset != 0 {
		parts = append(parts, fmt.Sprintf("Offset: %d", cfg.Offset))
	}
	if cfg.DryRun {
		parts = append(parts, "Dry run")
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}

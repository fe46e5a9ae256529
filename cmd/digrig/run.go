package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/digrig/pkg/config"
	"github.com/gwillem/digrig/pkg/excavate"
	"github.com/gwillem/digrig/pkg/status"
)

type RunCommand struct {
	Hz       int  `long:"hz" default:"10" description:"Tick frequency"`
	Bench    bool `long:"bench" description:"Use in-memory bench devices instead of the configured ones"`
	Headless bool `long:"headless" description:"Print status lines and read commands from stdin instead of the dashboard"`
	Debug    bool `long:"debug" description:"Show debug messages"`
}

const (
	headerHeight = 3 // title + phase line + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	speedStep    = 0.1
)

// Series colors, assigned in order of first appearance.
var seriesColors = []string{"196", "208", "226", "46", "51", "201", "99", "214"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type runModel struct {
	runner   *excavate.Runner
	logCh    <-chan string
	chart    *streamlinechart.Model
	series   []string // data set names in legend order
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    excavate.Status
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the runner
type stateMsg excavate.Status
type logMsg string

func waitForState(r *excavate.Runner) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-r.States())
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(r *excavate.Runner, logCh <-chan string) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 100),
	)
	return runModel{
		runner: r,
		logCh:  logCh,
		chart:  &chart,
	}
}

// push adds one sample (percent) to the named data set, styling new sets.
func (m *runModel) push(name string, value float64) {
	found := false
	for _, s := range m.series {
		if s == name {
			found = true
			break
		}
	}
	if !found {
		color := seriesColors[len(m.series)%len(seriesColors)]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		m.chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
		m.series = append(m.series, name)
	}
	m.chart.PushDataSet(name, value)
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.runner),
		waitForLog(m.logCh),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		var command string
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			command = "start"
		case "x":
			command = "stop"
		case "r":
			command = "reset"
		case "c":
			command = "reset-cache"
		case "+", "=":
			command = fmt.Sprintf("set-speed %g", m.state.Speed+speedStep)
		case "-":
			command = fmt.Sprintf("set-speed %g", m.state.Speed-speedStep)
		}
		if command != "" {
			if err := m.runner.Send(command); err != nil {
				m.addLog(err.Error())
			}
		}
		return m, nil

	case stateMsg:
		m.state = excavate.Status(msg)
		for _, a := range m.state.Actuators {
			if a.Err == nil {
				m.push(a.Name, a.Travel.Extension()*100)
			}
		}
		for _, c := range m.state.Containers {
			if c.Err == nil {
				m.push(c.Name, c.Fill.Ratio()*100)
			}
		}
		m.chart.DrawAll()
		return m, waitForState(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logCh)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Rig halted.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("digrig"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.runner.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(renderPhase(m.state))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("s start  x stop  r reset  c rescan  +/- speed  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderPhase(s excavate.Status) string {
	line := phaseStyle.Render(s.Phase.String())
	if s.Reason != excavate.ReasonNone {
		line += statusStyle.Render(" (" + s.Reason.String() + ")")
	}
	line += statusStyle.Render(fmt.Sprintf("  %.2f rpm, step every %s", s.Speed, s.Interval.Round(time.Second)))
	if !s.NextStep.IsZero() {
		line += statusStyle.Render(", next " + s.NextStep.Format(time.TimeOnly))
	}
	if !s.FinishAt.IsZero() {
		line += statusStyle.Render(", finish " + s.FinishAt.Format(time.TimeOnly))
	}
	if len(s.Missing) > 0 {
		var kinds []string
		for _, k := range s.Missing {
			kinds = append(kinds, kindLabel(k))
		}
		line += errorStyle.Render("  missing: " + strings.Join(kinds, ", "))
	}
	return line
}

func (m runModel) renderLegend() string {
	var items []string
	for i, name := range m.series {
		color := seriesColors[i%len(seriesColors)]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Bench)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Headless {
		return c.runHeadless(ctx, cfg, level)
	}

	// The dashboard owns the terminal: lines the log box cannot take are
	// dropped instead of written to stderr.
	sink := status.NewChannelSink(64)
	r, err := buildRig(cfg, sink, io.Discard, level)
	if err != nil {
		return err
	}
	defer r.Close()

	runner := excavate.NewRunner(r.ctrl, c.Hz)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runner.Start(ctx) }()

	p := tea.NewProgram(initialRunModel(runner, sink.Lines()), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	cancel()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

func (c *RunCommand) runHeadless(ctx context.Context, cfg *config.Config, level slog.Level) error {
	r, err := buildRig(cfg, status.NewWriterSink(os.Stdout), os.Stderr, level)
	if err != nil {
		return err
	}
	defer r.Close()

	runner := excavate.NewRunner(r.ctrl, c.Hz)
	go feedCommands(ctx, os.Stdin, runner.Send, r.log)
	if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// feedCommands passes every non-empty input line to send until in is
// exhausted or ctx is done.
func feedCommands(ctx context.Context, in io.Reader, send func(string) error, log *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := send(line); err != nil {
			log.Warn("Command dropped", "command", line, "err", err)
		}
	}
}

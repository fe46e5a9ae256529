package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gwillem/digrig/pkg/config"
	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/servo"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	FirstID int `long:"first-id" default:"1" description:"Lowest servo ID to scan"`
	LastID  int `long:"last-id" default:"20" description:"Highest servo ID to scan"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("digrig setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	cfg := config.Default()
	if existing, err := config.LoadFrom(opts.Config); err == nil {
		cfg = existing
		fmt.Printf("Updating %s\n\n", opts.Config)
	}

	tag := cfg.Rig.Tag
	ask(huh.NewInput().
		Title("Name tag").
		Description("Every rig device name must contain this tag").
		Value(&tag).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("tag must not be empty")
			}
			return nil
		}))
	cfg.Rig.Tag = strings.TrimSpace(tag)

	// Step 1: find servos and assign them to devices
	fmt.Println("Scanning serial ports for servos...")
	found, err := servo.FindBuses(c.FirstID, c.LastID)
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(found) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the servo bus is connected and powered on.")
	}

	var devices []config.DeviceConfig
	for _, f := range found {
		fmt.Printf("  Found %d servo(s) on %s\n", len(f.Servos), f.Bus.Port())
		devices = assignServos(f, cfg.Rig.Tag, devices)
		f.Bus.Close()
	}

	// Step 2: record the travel range of every actuator
	for i := range devices {
		if devices[i].Kind != device.KindLinearActuator.String() {
			continue
		}
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating " + devices[i].Name + " ━━━"))
		fmt.Println()
		if err := calibrateActuator(&devices[i]); err != nil {
			return err
		}
	}

	// Keep configured devices that were not reassigned
	for _, d := range cfg.Devices {
		if !lo.ContainsBy(devices, func(n config.DeviceConfig) bool { return n.Name == d.Name }) && strings.Contains(d.Name, cfg.Rig.Tag) {
			devices = append(devices, d)
		}
	}

	// Drives and containers have no servo backend
	for _, b := range config.BenchDevices(cfg.Rig.Tag) {
		if lo.ContainsBy(devices, func(d config.DeviceConfig) bool { return d.Kind == b.Kind }) {
			continue
		}
		if b.Kind == device.KindRotationDrive.String() || b.Kind == device.KindStorageContainer.String() {
			fmt.Println(dimStyle.Render(fmt.Sprintf("Adding bench %s %q", b.Kind, b.Name)))
			devices = append(devices, b)
		}
	}
	cfg.Devices = devices

	if err := cfg.Validate(); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Check the rig with: " + headerStyle.Render("digrig status"))
	fmt.Println("Start the controller with: " + headerStyle.Render("digrig run"))

	return nil
}

// assignServos wiggles each servo on the bus and asks which device it drives.
// Servos given the same name move that device together.
func assignServos(f servo.Found, tag string, devices []config.DeviceConfig) []config.DeviceConfig {
	ctx := context.Background()

	for _, s := range f.Servos {
		fmt.Printf("\n  Wiggling servo %d on %s...\n", s.ID, f.Bus.Port())
		if err := f.Bus.Wiggle(ctx, s); err != nil {
			fmt.Printf("  Error wiggling servo %d: %v\n", s.ID, err)
			continue
		}

		var kind string
		ask(huh.NewSelect[string]().
			Title(fmt.Sprintf("What does servo %d on %s drive?", s.ID, f.Bus.Port())).
			Description("The servo that just wiggled").
			Options(
				huh.NewOption("Linear actuator (extends the drill head)", device.KindLinearActuator.String()),
				huh.NewOption("Cutting tool", device.KindCuttingTool.String()),
				huh.NewOption("Skip this servo", "skip"),
			).
			Value(&kind))
		if kind == "skip" {
			continue
		}

		k, _ := device.ParseKind(kind)
		count := lo.CountBy(devices, func(d config.DeviceConfig) bool { return d.Kind == kind })
		name := defaultDeviceName(k, count+1, tag)
		ask(huh.NewInput().
			Title("Device name").
			Description("Reuse a name to gang servos onto one device").
			Value(&name).
			Validate(func(s string) error {
				if !strings.Contains(s, tag) {
					return fmt.Errorf("name must contain %s", tag)
				}
				return nil
			}))

		mc := servo.MotorCalibration{ID: s.ID, Model: s.Model}
		idx := slices.IndexFunc(devices, func(d config.DeviceConfig) bool { return d.Name == name })
		if idx >= 0 && devices[idx].Port == f.Bus.Port() && devices[idx].Kind == kind {
			devices[idx].Servos = append(devices[idx].Servos, mc)
			continue
		}
		if idx >= 0 {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  %s already exists on another port or kind, skipping", name)))
			continue
		}
		devices = append(devices, config.DeviceConfig{
			Name:    name,
			Kind:    kind,
			Backend: config.BackendServo,
			Port:    f.Bus.Port(),
			Servos:  servo.Calibration{mc},
		})
	}
	return devices
}

// ask runs a single-field form; aborting the form ends setup.
func ask(field huh.Field) {
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

func calibrateActuator(d *config.DeviceConfig) error {
	bus, err := servo.Open(d.Port)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()

	// Disable all servos so the actuator can be moved by hand
	bus.Release(ctx, d.Servos.MotorIDs()...)

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Start with the actuator fully retracted, then move it to full extension.")
	fmt.Println()

	model := newCalibrationModel(bus, d.Servos)
	for i, mc := range d.Servos {
		pos, _ := bus.Position(ctx, feetech.FoundServo{ID: mc.ID, Model: mc.Model})
		model.cur[i], model.min[i], model.max[i] = pos, pos, pos
	}
	model.first = append([]int(nil), model.cur...)

	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)

	for i := range d.Servos {
		// The actuator starts retracted, so a start near the high end means
		// raw positions decrease while extending.
		low, high := cm.min[i], cm.max[i]
		d.Servos[i].RangeMin, d.Servos[i].RangeMax = low, high
		d.Servos[i].Inverted = abs(cm.first[i]-high) < abs(cm.first[i]-low)
	}

	travel := strconv.FormatFloat(d.Max-d.Min, 'f', -1, 64)
	if d.Max <= d.Min {
		travel = "2"
	}
	ask(huh.NewInput().
		Title("Travel length").
		Description("Distance between full retraction and full extension, in metres").
		Value(&travel).
		Validate(func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v <= 0 {
				return fmt.Errorf("enter a positive number")
			}
			return nil
		}))
	v, _ := strconv.ParseFloat(travel, 64)
	d.Min, d.Max = 0, v

	fmt.Printf("%s calibrated.\n", d.Name)
	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Calibration TUI model
type calibrationModel struct {
	bus      *servo.Bus
	servos   servo.Calibration
	first    []int
	cur      []int
	min      []int
	max      []int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(bus *servo.Bus, servos servo.Calibration) calibrationModel {
	return calibrationModel{
		bus:    bus,
		servos: servos,
		cur:    make([]int, len(servos)),
		min:    make([]int, len(servos)),
		max:    make([]int, len(servos)),
	}
}

func (m calibrationModel) Init() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, mc := range m.servos {
			pos, err := m.bus.Position(ctx, feetech.FoundServo{ID: mc.ID, Model: mc.Model})
			if err != nil {
				continue
			}
			m.cur[i] = pos
			m.min[i] = min(m.min[i], pos)
			m.max[i] = max(m.max[i], pos)
		}
		return m, tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.servos))
	ranges := make([]int, 0, len(m.servos))
	for i, mc := range m.servos {
		rangeSize := m.max[i] - m.min[i]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			fmt.Sprintf("%d", mc.ID),
			fmt.Sprintf("%d", m.cur[i]),
			fmt.Sprintf("%d", m.min[i]),
			fmt.Sprintf("%d", m.max[i]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Servo", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableServoStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}

// defaultDeviceName suggests a name like "Piston 2 [Mining]".
func defaultDeviceName(k device.Kind, n int, tag string) string {
	return fmt.Sprintf("%s %d %s", cases.Title(language.English).String(kindLabel(k)), n, tag)
}

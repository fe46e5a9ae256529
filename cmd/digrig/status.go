package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/device"
	"github.com/gwillem/digrig/pkg/equipment"
	"github.com/gwillem/digrig/pkg/safety"
)

type StatusCommand struct {
	Bench bool `long:"bench" description:"Use in-memory bench devices instead of the configured ones"`
}

func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Bench)
	if err != nil {
		return err
	}
	dir, devices, err := cfg.Build(clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer devices.Close()

	reg := equipment.New(dir)
	reg.PopulateTagged(cfg.Rig.Tag)

	fmt.Println(headerStyle.Render("digrig status") + dimStyle.Render("  tag "+cfg.Rig.Tag))
	fmt.Println()

	var rows [][]string
	for _, d := range reg.RotationDrives() {
		rows = append(rows, []string{d.Name(), d.Kind().String(), "", ""})
	}
	for _, a := range reg.LinearActuators() {
		t, err := a.Travel()
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			rows = append(rows, []string{a.Name(), a.Kind().String(), "", err.Error()})
			continue
		}
		rows = append(rows, []string{a.Name(), a.Kind().String(),
			fmt.Sprintf("%.2f / %.2f", t.Current, t.Max), fmt.Sprintf("limit %.2f", t.Limit)})
	}
	for _, tool := range reg.CuttingTools() {
		rows = append(rows, []string{tool.Name(), tool.Kind().String(), "", ""})
	}
	for _, s := range reg.StorageContainers() {
		f, err := s.Fill()
		if err == nil {
			err = f.Validate()
		}
		if err != nil {
			rows = append(rows, []string{s.Name(), s.Kind().String(), "", err.Error()})
			continue
		}
		rows = append(rows, []string{s.Name(), s.Kind().String(),
			fmt.Sprintf("%.0f%%", f.Ratio()*100), fmt.Sprintf("%.1f / %.1f", f.Current, f.Max)})
	}

	fmt.Println(renderDeviceTable(rows))
	fmt.Println()

	if missing := reg.Missing(); len(missing) > 0 {
		for _, kind := range missing {
			fmt.Println(errorStyle.Render(fmt.Sprintf("No %s found", kind)))
		}
		return nil
	}

	monitor := safety.New(cfg.Rig.FillThreshold)
	verdict, err := monitor.Evaluate(reg.StorageContainers(), reg.LinearActuators())
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return nil
	}
	fmt.Printf("Storage full:     %s\n", yesNo(verdict.StorageFull))
	fmt.Printf("Travel exhausted: %s\n", yesNo(verdict.TravelExhausted))
	fmt.Println(successStyle.Render("Rig complete"))
	return nil
}

func renderDeviceTable(rows [][]string) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Device", "Kind", "Reading", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return nameStyle
			}
			return cellStyle
		}).
		Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// kindLabel is the short column label for a device kind.
func kindLabel(k device.Kind) string {
	switch k {
	case device.KindRotationDrive:
		return "rotor"
	case device.KindLinearActuator:
		return "piston"
	case device.KindCuttingTool:
		return "drill"
	case device.KindStorageContainer:
		return "cargo"
	}
	return k.String()
}

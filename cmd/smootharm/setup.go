package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/smootharm/pkg/actuator"
	"github.com/gwillem/smootharm/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("smootharm setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if _, err := os.Stat(opts.Config); err == nil {
		if cfg, err = robot.LoadConfigFrom(opts.Config); err != nil {
			return err
		}
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	// Step 1: driver
	if err := chooseDriver(&cfg.Driver); err != nil {
		return err
	}

	// Step 2: joints
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Joints ━━━"))
	fmt.Println()
	if err := chooseJoints(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println(renderCalibration(cfg.Calibration))

	// Step 3: save
	save := true
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Save to %s?", opts.Config)).
		Value(&save).
		Run(); err != nil || !save {
		fmt.Println("Nothing saved.")
		return nil
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()

	// Step 4: optional test move
	if cfg.Driver.Kind == actuator.KindRecord {
		fmt.Println("Start a dry run with: " + headerStyle.Render("smootharm run --dry-run"))
		return nil
	}
	try := false
	if err := huh.NewConfirm().
		Title("Move each joint through the test routine now?").
		Description("Every joint homes, swings 60° to 120° and returns home").
		Value(&try).
		Run(); err != nil || !try {
		fmt.Println("Play a routine with: " + headerStyle.Render("smootharm run"))
		return nil
	}
	run := &RunCommand{Routine: "test"}
	return run.Execute(nil)
}

func chooseDriver(d *robot.DriverConfig) error {
	descriptions := map[string]string{
		actuator.KindRecord:  "Dry run, writes are only logged",
		actuator.KindFeetech: "Feetech STS bus servos on a serial adapter",
		actuator.KindMaestro: "Pololu Maestro servo controller",
		actuator.KindPCA9685: "PCA9685 PWM expander on I²C",
		actuator.KindSysfs:   "Linux hardware PWM in /sys/class/pwm",
	}
	var options []huh.Option[string]
	for _, kind := range actuator.Kinds() {
		options = append(options, huh.NewOption(fmt.Sprintf("%-8s %s", kind, dimStyle.Render(descriptions[kind])), kind))
	}
	if d.Kind == "" {
		d.Kind = actuator.KindRecord
	}
	if err := huh.NewSelect[string]().
		Title("Which driver moves the servos?").
		Options(options...).
		Value(&d.Kind).
		Run(); err != nil {
		return err
	}

	switch d.Kind {
	case actuator.KindFeetech, actuator.KindMaestro:
		return choosePort(d)
	case actuator.KindPCA9685:
		addr := fmt.Sprintf("0x%02x", max(d.Address, 0x40))
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("I²C bus").Description("Empty for the first bus").Value(&d.Bus),
			huh.NewInput().Title("Address").Value(&addr).Validate(func(s string) error {
				_, err := strconv.ParseUint(s, 0, 7)
				return err
			}),
		)).Run(); err != nil {
			return err
		}
		v, _ := strconv.ParseUint(addr, 0, 7)
		d.Address = uint16(v)
	case actuator.KindSysfs:
		chip := strconv.Itoa(d.Chip)
		if err := huh.NewInput().
			Title("PWM chip number").
			Description("pwmchipN under /sys/class/pwm").
			Value(&chip).
			Validate(func(s string) error {
				_, err := strconv.Atoi(s)
				return err
			}).
			Run(); err != nil {
			return err
		}
		d.Chip, _ = strconv.Atoi(chip)
	}
	return nil
}

func choosePort(d *robot.DriverConfig) error {
	ports, err := actuator.Ports()
	if err != nil || len(ports) == 0 {
		fmt.Println(dimStyle.Render("No serial ports found, enter one by hand."))
		return huh.NewInput().Title("Serial port").Value(&d.Port).Run()
	}

	var options []huh.Option[string]
	for _, port := range ports {
		label := port
		if d.Kind == actuator.KindFeetech {
			label += "  " + dimStyle.Render(describeBus(port))
		}
		options = append(options, huh.NewOption(label, port))
	}
	if !slices.Contains(ports, d.Port) {
		d.Port = ports[0]
	}
	return huh.NewSelect[string]().
		Title("Which port?").
		Options(options...).
		Value(&d.Port).
		Run()
}

func describeBus(port string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	servos, err := actuator.ScanFeetech(ctx, port)
	if err != nil || len(servos) == 0 {
		return "no servos"
	}
	return fmt.Sprintf("%d servo(s)", len(servos))
}

func chooseJoints(cfg *robot.Config) error {
	var inverted []robot.Joint
	var options []huh.Option[robot.Joint]
	for _, j := range robot.AllJoints() {
		options = append(options, huh.NewOption(j.String(), j))
		if cfg.Calibration.For(j).Inverted {
			inverted = append(inverted, j)
		}
	}

	home := strconv.FormatFloat(float64(cfg.Params.Home), 'f', -1, 32)
	policy := string(cfg.Params.OnWriteError)
	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[robot.Joint]().
			Title("Inverted joints").
			Description("Joints mounted so that a higher angle turns the other way").
			Options(options...).
			Value(&inverted),
		huh.NewInput().
			Title("Home angle").
			Value(&home).
			Validate(func(s string) error {
				v, err := strconv.ParseFloat(s, 32)
				if err != nil || v < 0 || v > 180 {
					return fmt.Errorf("enter an angle between 0 and 180")
				}
				return nil
			}),
		huh.NewSelect[string]().
			Title("When a write fails").
			Options(
				huh.NewOption("Abort the run", string(robot.Abort)),
				huh.NewOption("Skip the write and carry on", string(robot.Skip)),
			).
			Value(&policy),
	)).Run()
	if err != nil {
		return err
	}

	if cfg.Calibration == nil {
		cfg.Calibration = robot.DefaultCalibration()
	}
	for _, j := range robot.AllJoints() {
		jc := cfg.Calibration.For(j)
		jc.Inverted = slices.Contains(inverted, j)
		cfg.Calibration[j] = jc
	}
	v, _ := strconv.ParseFloat(home, 32)
	cfg.Params.Home = float32(v)
	cfg.Params.OnWriteError = robot.WritePolicy(policy)
	return nil
}

func renderCalibration(cal robot.Calibration) string {
	var rows [][]string
	for _, j := range robot.AllJoints() {
		jc := cal.For(j)
		rows = append(rows, []string{
			j.String(),
			strconv.Itoa(jc.Channel),
			strconv.FormatBool(jc.Inverted),
			fmt.Sprintf("%g–%g", jc.Min, jc.Max),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Channel", "Inverted", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableNameStyle
			}
			return tableCellStyle
		}).
		Render()
}

package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/smootharm/pkg/motion"
	"github.com/gwillem/smootharm/pkg/robot"
)

type PhasesCommand struct {
	Table string `short:"t" long:"table" description:"Show a JSON phase table instead of a routine"`
	Args  struct {
		Routine string `positional-arg-name:"routine"`
	} `positional-args:"yes"`
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableNameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableDirectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
)

func (c *PhasesCommand) Execute(args []string) error {
	if c.Table == "" && c.Args.Routine == "" {
		fmt.Println(renderRoutines())
		return nil
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	p := cfg.Params

	var phases []motion.Phase
	title := c.Table
	if c.Table != "" {
		phases, err = motion.LoadTable(c.Table)
	} else {
		var r motion.Routine
		r, err = motion.Lookup(c.Args.Routine)
		phases, title = r.Phases(p.Home), r.Name
	}
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(title))
	fmt.Println(renderPhases(phases, p))
	return nil
}

func renderRoutines() string {
	var rows [][]string
	for _, r := range motion.Routines() {
		rows = append(rows, []string{r.Name, r.Description})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Routine", "Description").
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

// renderPhases lists phases as they would play at the configured speed.
func renderPhases(phases []motion.Phase, p robot.Params) string {
	var (
		rows   [][]string
		direct []bool
		total  time.Duration
	)
	for i, ph := range phases {
		ph = ph.Scale(p.Speed)
		pause := ph.Pause
		if pause == 0 {
			pause = p.PhasePause()
		}
		pause = max(pause, 0)
		total += ph.Duration() + pause
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			ph.Name,
			fmt.Sprint(ph.Ticks),
			ph.Delay.String(),
			pause.String(),
			ph.Mode.String(),
			ph.Profile.String(),
			ph.Duration().String(),
		})
		direct = append(direct, ph.Mode == motion.Direct)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Phase", "Ticks", "Delay", "Pause", "Mode", "Profile", "Duration").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch {
			case col == 1:
				return tableNameStyle
			case col == 5 && row >= 0 && row < len(direct) && direct[row]:
				return tableDirectStyle
			default:
				return tableCellStyle
			}
		})
	return t.Render() + "\n" + dimStyle.Render(fmt.Sprintf("%d phases, about %s", len(phases), total.Round(100*time.Millisecond)))
}

package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/smootharm/pkg/player"
	"github.com/gwillem/smootharm/pkg/robot"
)

const (
	headerHeight = 3 // title, progress, blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

var jointColors = [robot.NumJoints]string{
	robot.Base:     "196", // red
	robot.Shoulder: "208", // orange
	robot.Elbow:    "46",  // green
	robot.Gripper:  "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	player   *player.Player
	routine  string
	chart    *streamlinechart.Model
	width    int
	height   int
	state    player.State
	logs     []string
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

type stateMsg player.State
type logMsg string

func waitForState(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-p.States())
	}
}

func waitForLog(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-p.Logs())
	}
}

func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func initialRunModel(p *player.Player, routine string) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 180),
	)
	for _, j := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(j.String(), runes.ThinLineStyle, style)
	}
	return runModel{
		player:  p,
		routine: routine,
		chart:   &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.player),
		waitForLog(m.player),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		prev := m.state.Angles
		m.state = player.State(msg)
		// freeze the chart while holding
		if !m.state.Holding || m.state.Angles != prev {
			for _, j := range robot.AllJoints() {
				m.chart.PushDataSet(j.String(), float64(m.state.Angles[j]))
			}
			m.chart.DrawAll()
		}
		if m.state.Done {
			return m, nil
		}
		return m, waitForState(m.player)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.player)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Run stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("smootharm"))
	sb.WriteString(" - " + m.routine)
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.progress())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(m.legend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	logLines := statusStyle.Render("Press 'q' to stop")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m runModel) progress() string {
	s := m.state
	var line string
	switch {
	case s.Done && s.Error != nil:
		line = fmt.Sprintf("failed: %v", s.Error)
	case s.Done:
		line = "finished, press 'q' to exit"
	case s.Holding:
		line = "holding at home"
	case s.Phase != "":
		line = fmt.Sprintf("phase %d/%d %s  tick %d/%d", s.Index+1, s.Total, s.Phase, s.Tick, s.Ticks)
	default:
		line = "homing"
	}
	stats := fmt.Sprintf("  writes %d  suppressed %d  failures %d",
		s.Stats.Writes, s.Stats.Suppressed, s.Stats.Failures)
	return line + statusStyle.Render(stats)
}

// legend shows each joint's colour and current angle.
func (m runModel) legend() string {
	var items []string
	for _, j := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		items = append(items, fmt.Sprintf("%s %s %5.1f°", colorStyle.Render("━━"), j, m.state.Angles[j]))
	}
	return strings.Join(items, "  ")
}

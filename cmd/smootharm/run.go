package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/actuator"
	"github.com/gwillem/smootharm/pkg/motion"
	"github.com/gwillem/smootharm/pkg/player"
	"github.com/gwillem/smootharm/pkg/robot"
	"github.com/gwillem/smootharm/pkg/telemetry"
)

type RunCommand struct {
	Routine string  `short:"r" long:"routine" default:"demo" description:"Built-in routine to play"`
	Table   string  `short:"t" long:"table" description:"Play a JSON phase table instead of a routine"`
	Stop    bool    `long:"stop" description:"Ease every joint but the base back home"`
	Speed   float32 `long:"speed" description:"Override the speed multiplier (higher is slower)"`
	Hold    bool    `long:"hold" description:"Idle at home after the sequence until interrupted"`
	DryRun  bool    `short:"n" long:"dry-run" description:"Record writes instead of driving hardware"`
	Instant bool    `long:"instant" description:"Skip all waits (dry runs only)"`
	TUI     bool    `long:"tui" description:"Show a live chart of the joint angles"`
	Serve   string  `long:"serve" value-name:"ADDR" description:"Stream run events over a websocket at ADDR/events"`
	Every   int     `long:"every" default:"5" description:"Send every Nth tick to telemetry clients"`
}

// instantClock never waits
type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (c *RunCommand) phases(home float32) ([]motion.Phase, string, error) {
	switch {
	case c.Table != "":
		phases, err := motion.LoadTable(c.Table)
		return phases, c.Table, err
	case c.Stop:
		r, err := motion.Lookup("stop")
		if err != nil {
			return nil, "", err
		}
		return r.Phases(home), r.Name, nil
	default:
		r, err := motion.Lookup(c.Routine)
		if err != nil {
			return nil, "", err
		}
		return r.Phases(home), r.Name, nil
	}
}

func (c *RunCommand) Execute(args []string) error {
	if c.Instant && !c.DryRun {
		return errors.New("--instant needs --dry-run")
	}
	if c.Instant && c.Hold {
		// an idle hold on a clock that never waits would spin
		return errors.New("--instant cannot be combined with --hold")
	}

	cfg, err := loadConfig(c.DryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No usable configuration in %s. Run 'smootharm setup' first, or use --dry-run.\n", opts.Config)
		return err
	}
	if c.Speed > 0 {
		cfg.Params.Speed = c.Speed
	}

	phases, name, err := c.phases(cfg.Params.Home)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		driver robot.Driver
		rec    *actuator.Recorder
	)
	if c.DryRun {
		rec = actuator.NewRecorder(cfg.Params.Duty())
		driver = rec
	} else {
		driver, err = actuator.Open(ctx, cfg.Driver, cfg.Params.Duty(), cfg.Calibration)
		if err != nil {
			return fmt.Errorf("open %s driver: %w", cfg.Driver.Kind, err)
		}
	}

	arm, err := robot.NewArm(driver, cfg.Params, cfg.Calibration)
	if err != nil {
		driver.Close()
		return err
	}

	pcfg := player.Config{Phases: phases, Hold: c.Hold}
	if c.Instant {
		pcfg.Clock = instantClock{}
	}
	if c.TUI {
		pcfg.Logger = log.Discard()
	}
	if c.Serve != "" {
		hub := telemetry.New()
		go hub.Run(ctx)
		pcfg.Observer = hub.Observer(c.Every)
		srv := serve(c.Serve, hub)
		defer srv.Shutdown(context.Background())
	}

	p := player.New(arm, pcfg)
	defer p.Close()

	var res motion.Result
	if c.TUI {
		res, err = runWithTUI(ctx, p, name)
	} else {
		res, err = p.Start(ctx)
	}

	fmt.Println(renderSummary(name, res, rec))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serve(addr string, hub *telemetry.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("telemetry server", "addr", addr, "err", err)
		}
	}()
	log.Info("streaming events", "url", "ws://"+addr+"/events")
	return srv
}

// runWithTUI plays in the background while the chart owns the terminal.
// Quitting the TUI cancels the run.
func runWithTUI(ctx context.Context, p *player.Player, name string) (motion.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res motion.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.Start(ctx)
		done <- outcome{res, err}
	}()

	prog := tea.NewProgram(initialRunModel(p, name), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return motion.Result{}, fmt.Errorf("run tui: %w", err)
	}
	cancel()
	o := <-done
	return o.res, o.err
}

func renderSummary(name string, res motion.Result, rec *actuator.Recorder) string {
	rows := [][]string{
		{"routine", name},
		{"run", res.Run},
		{"phases", fmt.Sprint(res.Phases)},
		{"ticks", fmt.Sprint(res.Ticks)},
		{"paced", res.Paced.String()},
		{"writes", fmt.Sprint(res.Stats.Writes)},
		{"suppressed", fmt.Sprint(res.Stats.Suppressed)},
		{"failures", fmt.Sprint(res.Stats.Failures)},
	}
	if rec != nil {
		for _, j := range robot.AllJoints() {
			rows = append(rows, []string{j.String() + " writes", fmt.Sprint(rec.Count(j))})
		}
	}

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		})
	return t.Render()
}

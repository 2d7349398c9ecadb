package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"smootharm.json" description:"Configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Setup  SetupCommand  `command:"setup" description:"Choose a driver, port and joint inversion"`
	Run    RunCommand    `command:"run" description:"Home the arm and play a routine or phase table"`
	Phases PhasesCommand `command:"phases" alias:"ls" description:"List routines or show the phases of one"`
	Ports  PortsCommand  `command:"ports" description:"List serial ports, optionally scanning for bus servos"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "smootharm - smooth choreography for a four-joint servo arm"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		log.Init(opts.LogLevel)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file. Without one, only a dry run may proceed,
// on the default wiring.
func loadConfig(dryRun bool) (*robot.Config, error) {
	if _, err := os.Stat(opts.Config); os.IsNotExist(err) && dryRun {
		return robot.DefaultConfig(), nil
	}
	return robot.LoadConfigFrom(opts.Config)
}

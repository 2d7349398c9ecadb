package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/smootharm/pkg/actuator"
)

type PortsCommand struct {
	Scan bool `short:"s" long:"scan" description:"Scan each port for Feetech bus servos"`
}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := actuator.Ports()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	for _, port := range ports {
		if !c.Scan {
			fmt.Println(port)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := actuator.ScanFeetech(ctx, port)
		cancel()
		switch {
		case err != nil:
			fmt.Printf("%s  %s\n", port, dimStyle.Render(err.Error()))
		case len(servos) == 0:
			fmt.Printf("%s  %s\n", port, dimStyle.Render("no servos"))
		default:
			ids := make([]int, len(servos))
			for i, s := range servos {
				ids[i] = s.ID
			}
			fmt.Printf("%s  %s\n", port, successStyle.Render(fmt.Sprintf("servo IDs %v", ids)))
		}
	}
	return nil
}

// cmd/ervd/main.go
//
// ervd bridges an ERV controller on Modbus TCP to HTTP, WebSocket and MQTT.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

// Global flags
var (
	cfgFile    string
	host       string
	port       int
	unitID     uint8
	profile    string
	verbose    bool
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ervd",
		Short:         "ERV controller bridge",
		Long:          "ervd polls an energy recovery ventilator over Modbus TCP and exposes telemetry and controls.",
		Version:       fmt.Sprintf("%s (commit: %s)", version, gitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file")
	pf.StringVar(&host, "host", "", "device host (overrides config)")
	pf.IntVar(&port, "port", 0, "device port (overrides config)")
	pf.Uint8Var(&unitID, "unit", 0, "device unit id (overrides config)")
	pf.StringVar(&profile, "profile", "", "built-in register table: erv or holtop")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&jsonOutput, "json", false, "JSON output")

	root.AddCommand(
		newRunCmd(),
		newReadCmd(),
		newWriteCmd(),
		newFanCmd(),
		newPowerCmd(),
		newRegistersCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ervd %s (commit: %s)\n", version, gitCommit)
		},
	}
}

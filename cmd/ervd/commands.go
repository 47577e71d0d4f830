// cmd/ervd/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamzrod/erv-bridge/internal/poller"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

// withService builds a service for a one-shot command and closes it after.
func withService(ctx context.Context, fn func(ctx context.Context, svc *poller.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := poller.Build(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, svc)
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <register>",
		Short: "Read one register by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *poller.Service) error {
				raw, v, err := svc.ReadRegister(ctx, args[0])
				if err != nil {
					return err
				}
				def, _ := svc.Registers().Lookup(args[0])
				return printReading(cmd.OutOrStdout(), def, raw, v)
			})
		},
	}
}

func printReading(w io.Writer, def registers.RegisterDef, raw uint16, v registers.Value) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(map[string]any{
			"name":  def.Name,
			"raw":   raw,
			"value": v,
			"unit":  def.Unit,
		})
	}
	_, err := fmt.Fprintf(w, "%s = %s %s (raw 0x%04X)\n", def.Name, v, def.Unit, raw)
	return err
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <register> <value>",
		Short: "Write one register by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *poller.Service) error {
				def, err := svc.Registers().Lookup(args[0])
				if err != nil {
					return err
				}
				v, err := registers.ParseValue(def, args[1])
				if err != nil {
					return err
				}
				if err := svc.WriteRegister(ctx, def.Name, v); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <- %s\n", def.Name, v)
				return nil
			})
		},
	}
}

func newFanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fan <supply|exhaust> <percent>",
		Short: "Set a fan speed in percent (snapped to the nearest step)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := poller.ParseSide(args[0])
			if err != nil {
				return err
			}
			pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
			if err != nil {
				return fmt.Errorf("percent: %w", err)
			}
			return withService(cmd.Context(), func(ctx context.Context, svc *poller.Service) error {
				if err := svc.SetFanSpeed(ctx, side, pct); err != nil {
					return err
				}
				step, _ := registers.StepByCode(registers.PercentToStep(pct))
				fmt.Fprintf(cmd.OutOrStdout(), "%s fan -> %s (%d%%)\n", side, step.Name, step.Percent)
				return nil
			})
		},
	}
}

func newPowerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "power <on|off>",
		Short:     "Switch the unit on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch strings.ToLower(args[0]) {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("power: expected on or off, got %q", args[0])
			}
			return withService(cmd.Context(), func(ctx context.Context, svc *poller.Service) error {
				if err := svc.SetSystemPower(ctx, on); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "power -> %s\n", args[0])
				return nil
			})
		},
	}
}

func newRegistersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registers",
		Short: "Print the active register table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRegistersConfig()
			if err != nil {
				return err
			}
			m, err := cfg.RegisterMap()
			if err != nil {
				return err
			}
			return printRegisters(cmd.OutOrStdout(), m)
		},
	}
}

func printRegisters(w io.Writer, m *registers.Map) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ADDR\tNAME\tACCESS\tENCODING\tSCALE\tUNIT\tRANGE\n")
	for _, d := range m.Defs() {
		rng := "-"
		if d.Range != nil {
			rng = fmt.Sprintf("%g..%g", d.Range.Min, d.Range.Max)
		}
		fmt.Fprintf(tw, "0x%04X\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Address, d.Name, d.Access, d.Encoding, d.Scale, d.Unit, rng)
	}
	return tw.Flush()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"topolab/internal/preflight"
)

func newProbeCmd(a *app) *cobra.Command {
	var (
		host       string
		port       int
		extraPorts string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the FortiGate management API is reachable (requires nmap)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.FortiGate.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.FortiGate.Port = port
			}
			if cmd.Flags().Changed("extra-ports") {
				a.cfg.Preflight.ExtraPorts = extraPorts
			}
			if a.cfg.FortiGate.Host == "" {
				return fmt.Errorf("fortigate host is required")
			}

			result, err := a.newProber().Probe(cmd.Context(), a.cfg.FortiGate.Host, a.cfg.FortiGate.Port)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printProbe(a.out, result)
			if !result.Reachable() {
				return fmt.Errorf("API port %d on %s is not open", result.APIPort, result.Target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "FortiGate IP address or hostname")
	cmd.Flags().IntVar(&port, "port", 0, "FortiGate HTTPS port")
	cmd.Flags().StringVar(&extraPorts, "extra-ports", "", `additional ports, e.g. "22,80" or "8000-8010"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printProbe(w io.Writer, r *preflight.Result) {
	fmt.Fprintf(w, "Target: %s", r.Target)
	if r.Address != "" && r.Address != r.Target {
		fmt.Fprintf(w, " (%s)", r.Address)
	}
	fmt.Fprintf(w, "\nHost up: %v, took %s\n\n", r.HostUp, r.Took)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSTATE\tSERVICE")
	for _, p := range r.Ports {
		fmt.Fprintf(tw, "%d/%s\t%s\t%s\n", p.Port, p.Protocol, p.State, p.Service)
	}
	tw.Flush()
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

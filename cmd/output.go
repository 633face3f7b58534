package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/terabiome/stackbuilder/internal/api"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (must be table, json, or yaml)", format)
	}
}

// newSpinner returns a spinner that only runs for table output.
func newSpinner(format, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	if format == formatTable {
		s.Start()
	}
	return s
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported structured format: %s", format)
	}
}

func printInfo(w io.Writer, format string, info api.InfoResponse) error {
	if format != formatTable {
		return writeStructured(w, format, info)
	}

	label := color.New(color.FgCyan, color.Bold)
	row := func(name, value string) {
		if value == "" {
			value = color.New(color.Faint).Sprint("-")
		}
		fmt.Fprintf(w, "%s %s\n", label.Sprintf("%-20s", name), value)
	}

	row("Ingress External-IP", info.IngressExternalIP)
	row("fc-service URL", info.FCServiceURL)
	row("Keycloak URL", info.KeycloakURL)
	secret := ""
	if info.ClientSecret != "" {
		secret = "set (use --format json to reveal)"
	}
	row("Client Secret", secret)
	return nil
}

func printStatuses(w io.Writer, format string, statuses []api.NodeStatus) error {
	if format != formatTable {
		return writeStructured(w, format, statuses)
	}

	header := color.New(color.Bold)
	header.Fprintf(w, "%-38s %-22s %-14s %s\n", "ID", "KIND", "PHASE", "NAME")
	for _, s := range statuses {
		fmt.Fprintf(w, "%-38s %-22s %-14s %s\n", s.ID, s.Kind, phaseColor(s.Phase).Sprint(s.Phase), s.Name)
	}
	return nil
}

func printService(w io.Writer, format string, resp *api.ServiceResponse) error {
	if format != formatTable {
		return writeStructured(w, format, resp)
	}

	code := color.New(color.FgGreen)
	if resp.StatusCode >= 400 {
		code = color.New(color.FgRed)
	}
	code.Fprintf(w, "HTTP %d\n", resp.StatusCode)

	if s, ok := resp.Body.(string); ok {
		fmt.Fprintln(w, s)
		return nil
	}
	if resp.Body == nil {
		return nil
	}
	return writeStructured(w, formatJSON, resp.Body)
}

func printPreflight(w io.Writer, format string, report api.PreflightReport) error {
	if format != formatTable {
		return writeStructured(w, format, report)
	}

	for _, c := range report.Checks {
		if c.OK {
			color.New(color.FgGreen).Fprint(w, "✓ ")
			fmt.Fprintf(w, "%-9s %s\n", c.Name, c.Target)
			continue
		}
		color.New(color.FgRed).Fprint(w, "✗ ")
		fmt.Fprintf(w, "%-9s %s: %s\n", c.Name, c.Target, c.Detail)
	}
	return nil
}

func phaseColor(phase string) *color.Color {
	switch phase {
	case "deployed":
		return color.New(color.FgGreen)
	case "failed":
		return color.New(color.FgRed)
	case "deploying", "uninstalling":
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}

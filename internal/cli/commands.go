package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/macro"
	"github.com/bcnelson/trigger-macros/internal/resolver"
	"github.com/bcnelson/trigger-macros/internal/service"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "macroctl %s\n", version)
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import configuration snapshots (YAML or JSON)",
		Example: `  # Import a YAML snapshot into the default SQLite database
  macroctl import testdata/state.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var summaries []*domain.ImportSummary
			for _, path := range args {
				summary, err := a.ImportFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				if summary == nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: already imported, skipped\n", path)
					continue
				}
				summaries = append(summaries, summary)
				if !outputJSON(cmd) {
					printSummary(cmd, path, summary)
				}
			}

			if outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, path string, s *domain.ImportSummary) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s: batch %s\n", path, s.BatchID)
	rows := []struct {
		name  string
		count int
	}{
		{"hosts", s.Hosts},
		{"template links", s.TemplateLinks},
		{"interfaces", s.Interfaces},
		{"value mappings", s.ValueMappings},
		{"items", s.Items},
		{"triggers", s.Triggers},
		{"functions", s.Functions},
		{"host macros", s.HostMacros},
		{"global macros", s.GlobalMacros},
		{"history values", s.History},
	}
	for _, row := range rows {
		if row.count > 0 {
			_, _ = fmt.Fprintf(w, "  %-15s %s\n", row.name, humanize.Comma(int64(row.count)))
		}
	}
}

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	var clock int64
	var ns int

	cmd := &cobra.Command{
		Use:   "expand <triggerid>...",
		Short: "Expand the macros of triggers",
		Example: `  # Expand two triggers
  macroctl expand 13491 13492

  # Expand as of an event, using the item value at that time
  macroctl expand 13491 --mode event --clock 1700000000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			req := &service.ExpandRequest{TriggerIDs: args}
			if cmd.Flags().Changed("clock") {
				req.Events = make(map[string]domain.EventTime, len(args))
				for _, id := range args {
					req.Events[id] = domain.EventTime{Clock: clock, NS: ns}
				}
			}

			resp, err := a.Service.ExpandTriggers(cmd.Context(), req)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			for _, t := range resp.Triggers {
				printTrigger(cmd, t)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&clock, "clock", 0, "Event time (unix seconds) for {ITEM.VALUE} in event mode")
	cmd.Flags().IntVar(&ns, "ns", 0, "Nanosecond part of the event time")

	return cmd
}

func printTrigger(cmd *cobra.Command, t *resolver.ExpandedTrigger) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "trigger %s\n", t.TriggerID)
	_, _ = fmt.Fprintf(w, "  description: %s\n", t.Description)
	_, _ = fmt.Fprintf(w, "  expression:  %s\n", t.Expression)
}

// NewUserMacroCommand creates the usermacro command.
func NewUserMacroCommand() *cobra.Command {
	var hostIDs []string

	cmd := &cobra.Command{
		Use:   "usermacro <macro>...",
		Short: "Resolve user macros in the scope of hosts",
		Example: `  # Resolve a macro on host 10084, falling back to templates and globals
  macroctl usermacro --host 10084 '{$MAXCONN}' '{$DISK:"/var"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Service.ResolveUserMacros(cmd.Context(), &service.ResolveUserMacrosRequest{
				Elements: []resolver.UserMacroRequest{{HostIDs: hostIDs, Macros: args}},
			})
			if err != nil {
				return err
			}

			values := resp.Elements[0]
			if outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), values)
			}
			for _, m := range args {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", m, values[m])
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hostIDs, "host", nil, "Host id to resolve in (repeatable)")

	return cmd
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <grammar> <text>...",
		Short: "List the macros of one grammar found in texts",
		Example: `  macroctl scan interface_function '{HOST.CONN}:{HOST.PORT2}'`,
		Args:    cobra.MinimumNArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return macro.GrammarNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewMacroService(nil, nil, nil)
			resp, err := svc.Scan(&service.ScanRequest{Grammar: args[0], Texts: args[1:]})
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			w := cmd.OutOrStdout()
			for _, m := range resp.Macros {
				_, _ = fmt.Fprintln(w, m)
			}
			names := make([]string, 0, len(resp.Positions))
			for name := range resp.Positions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				positions := make([]string, len(resp.Positions[name]))
				for i, pos := range resp.Positions[name] {
					positions[i] = fmt.Sprint(pos)
				}
				_, _ = fmt.Fprintf(w, "%s used at positions %s\n", name, strings.Join(positions, ","))
			}
			return nil
		},
	}
}

// NewGrammarsCommand creates the grammars command.
func NewGrammarsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grammars",
		Short: "List the macro grammars accepted by scan",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range macro.GrammarNames() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

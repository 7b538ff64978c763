package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Event      string
	Identifier string
	LoadID     string
	After      int64
	Limit      int
}

// TraceResult is the output of the trace command.
type TraceResult struct {
	Entries []TraceEntry `json:"entries"`
	Stats   TraceStats   `json:"stats"`
}

// TraceEntry is one journaled event.
type TraceEntry struct {
	Seq        int64  `json:"seq"`
	Event      string `json:"event"`
	Identifier string `json:"identifier,omitempty"`
	URI        string `json:"uri,omitempty"`
	Async      bool   `json:"async,omitempty"`
	Status     int    `json:"status,omitempty"`
	LoadID     string `json:"load_id,omitempty"`
}

// TraceStats summarizes the listed entries.
type TraceStats struct {
	Total         int `json:"total"`
	Includes      int `json:"includes"`
	IncludeErrors int `json:"include_errors"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled lifecycle events",
		Long: `List lifecycle events recorded in a journal, oldest first.

The journal is written by any command run with --journal.

Examples:
  nsreg trace --db ./nsreg.db
  nsreg trace --db ./nsreg.db --event includeError
  nsreg trace --db ./nsreg.db --identifier app.util --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (defaults to --journal)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "only events with this name")
	cmd.Flags().StringVar(&opts.Identifier, "identifier", "", "only events for this identifier")
	cmd.Flags().StringVar(&opts.LoadID, "load-id", "", "only events of this load")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	path := opts.Database
	if path == "" {
		cfg, err := opts.settings()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --db or --journal")
	}
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path), err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	entries, err := j.Entries(cmd.Context(), journal.Filter{
		Name:       opts.Event,
		Identifier: opts.Identifier,
		LoadID:     opts.LoadID,
		AfterSeq:   opts.After,
		Limit:      opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query journal", err)
	}

	result := TraceResult{Entries: make([]TraceEntry, 0, len(entries))}
	for _, e := range entries {
		result.Entries = append(result.Entries, TraceEntry{
			Seq:        e.Seq,
			Event:      e.Name,
			Identifier: e.Identifier,
			URI:        e.URI,
			Async:      e.Async,
			Status:     e.Status,
			LoadID:     e.LoadID,
		})
		switch e.Name {
		case events.Include:
			result.Stats.Includes++
		case events.IncludeError:
			result.Stats.IncludeErrors++
		}
	}
	result.Stats.Total = len(entries)

	return opts.formatter(cmd).Success(result, formatTrace(result))
}

func formatTrace(r TraceResult) string {
	if len(r.Entries) == 0 {
		return "No events found."
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%6d  %-12s %s", e.Seq, e.Event, e.Identifier)
		if e.URI != "" {
			fmt.Fprintf(&b, "  %s", e.URI)
		}
		if e.Status != 0 {
			fmt.Fprintf(&b, "  status=%d", e.Status)
		}
		if e.Async {
			b.WriteString("  async")
		}
		if e.LoadID != "" {
			fmt.Fprintf(&b, "  load=%s", e.LoadID)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n%d events, %d includes, %d include errors",
		r.Stats.Total, r.Stats.Includes, r.Stats.IncludeErrors)
	return b.String()
}

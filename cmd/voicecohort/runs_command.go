package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"voicecohort/internal/ledger"
)

type runJSON struct {
	ID             string         `json:"id"`
	Dataset        string         `json:"dataset"`
	OutputDir      string         `json:"output_dir"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Submissions    int            `json:"submissions"`
	Filtered       int            `json:"filtered"`
	Positives      int            `json:"positives"`
	Negatives      int            `json:"negatives"`
	ValidPositives int            `json:"valid_positives"`
	Controls       int            `json:"controls"`
	Unmatched      int            `json:"unmatched"`
	Error          string         `json:"error,omitempty"`
	Decisions      []decisionJSON `json:"decisions,omitempty"`
}

type decisionJSON struct {
	Seq       int    `json:"seq"`
	PersonID  string `json:"person_id"`
	Stage     string `json:"stage"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	RelatedID string `json:"related_id,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent curation runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					out := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						out = append(out, toRunJSON(run, nil))
					}
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(w, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortRunID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						colorStatus(w, run.Status),
						fmt.Sprint(run.Positives),
						fmt.Sprint(run.Controls),
						fmt.Sprint(run.Unmatched),
						formatRunDuration(run.Duration()),
						run.Dataset,
					})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"ID", "Started", "Status", "Positives", "Controls", "Unmatched", "Duration", "Dataset"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the decisions of one run (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				run, err := store.FindRun(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				decisions, err := store.Decisions(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, toRunJSON(run, decisions))
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Run %s (%s)\n", run.ID, colorStatus(w, run.Status))
				fmt.Fprintf(w, "Dataset: %s\n", run.Dataset)
				fmt.Fprintf(w, "Output: %s\n", run.OutputDir)
				fmt.Fprintf(w, "Positives: %d (valid %d), negatives: %d, controls: %d, unmatched: %d\n",
					run.Positives, run.ValidPositives, run.Negatives, run.Controls, run.Unmatched)
				if run.ErrorMessage != "" {
					fmt.Fprintf(w, "Error: %s\n", run.ErrorMessage)
				}
				if len(decisions) == 0 {
					fmt.Fprintln(w, "No decisions recorded")
					return nil
				}
				rows := make([][]string, 0, len(decisions))
				for _, d := range decisions {
					rows = append(rows, []string{fmt.Sprint(d.Seq), d.PersonID, d.Stage, d.Result, d.Reason, d.RelatedID})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"#", "Person", "Stage", "Result", "Reason", "Positive"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func toRunJSON(run *ledger.Run, decisions []ledger.Decision) runJSON {
	out := runJSON{
		ID:             run.ID,
		Dataset:        run.Dataset,
		OutputDir:      run.OutputDir,
		Status:         string(run.Status),
		StartedAt:      run.StartedAt,
		Submissions:    run.Submissions,
		Filtered:       run.Filtered,
		Positives:      run.Positives,
		Negatives:      run.Negatives,
		ValidPositives: run.ValidPositives,
		Controls:       run.Controls,
		Unmatched:      run.Unmatched,
		Error:          run.ErrorMessage,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		out.FinishedAt = &finished
	}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, decisionJSON{
			Seq:       d.Seq,
			PersonID:  d.PersonID,
			Stage:     d.Stage,
			Result:    d.Result,
			Reason:    d.Reason,
			RelatedID: d.RelatedID,
		})
	}
	return out
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRunDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func colorStatus(w io.Writer, status ledger.Status) string {
	switch status {
	case ledger.StatusCompleted:
		return colorize(w, string(status), text.Colors{text.FgGreen})
	case ledger.StatusFailed:
		return colorize(w, string(status), text.Colors{text.FgRed})
	default:
		return colorize(w, string(status), text.Colors{text.FgYellow})
	}
}

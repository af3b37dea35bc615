// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-engine/internal/history"
	"github.com/pdiddy/report-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export earlier runs",
	Long: `History reads the local SQLite database where generate records every
run, finished or failed. Use subcommands to list runs, show one in full, or
export them.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List saved runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sums, err := store.List(context.Background(), historyOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sums)
	}
	formatHistoryTable(os.Stdout, sums)
	return nil
}

func formatHistoryTable(w io.Writer, sums []history.Summary) {
	if len(sums) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	fmt.Fprintf(w, "%-8s  %-19s  %-6s  %-5s  %-8s  %s\n",
		"ID", "Started", "Stage", "Score", "Evidence", "Topic")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, s := range sums {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		started := s.StartedAt
		if len(started) > 19 {
			started = strings.Replace(started[:19], "T", " ", 1)
		}
		score := "-"
		if s.Score != nil {
			score = fmt.Sprintf("%d", *s.Score)
		}
		flags := ""
		if s.Revised {
			flags += " (revised)"
		}
		if s.Degraded {
			flags += " (fallback)"
		}
		fmt.Fprintf(w, "%-8s  %-19s  %-6s  %-5s  %-8d  %s%s\n",
			id, started, s.Stage, score, s.EvidenceCount, s.Topic, flags)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(sums))
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run in full (an id prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(os.Stdout, "Run:     %s\n", rec.ID)
	fmt.Fprintf(os.Stdout, "Topic:   %s\n", rec.Topic)
	fmt.Fprintf(os.Stdout, "Stage:   %s\n", rec.Stage)
	if rec.Score != nil {
		fmt.Fprintf(os.Stdout, "Score:   %d (revised: %t)\n", *rec.Score, rec.Revised)
	}
	if rec.Error != "" {
		fmt.Fprintf(os.Stdout, "Error:   %s\n", rec.Error)
	}
	if len(rec.SearchTerms) > 0 {
		fmt.Fprintln(os.Stdout, "\nSearch terms:")
		for i, t := range rec.SearchTerms {
			fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, t)
		}
	}
	if len(rec.Evidence) > 0 {
		fmt.Fprintln(os.Stdout, "\nEvidence:")
		for i, e := range rec.Evidence {
			fmt.Fprintf(os.Stdout, "  %d. %s\n     %s\n", i+1, e.Title, e.URL)
		}
	}
	for _, w := range rec.Warnings {
		fmt.Fprintf(os.Stdout, "warning: %s\n", w)
	}
	if rec.FinalReport != "" {
		fmt.Fprintf(os.Stdout, "\n%s\n", rec.FinalReport)
	}
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export saved runs to YAML or JSON",
	Long: `Export writes every saved run (or those matching a query or stage) with
its evidence to history/index/export.yaml or export.json.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.Export(context.Background(), format, historyOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("history-dir"); dir != "" {
		cfg.History.Dir = dir
	}
	return history.Open(cfg.History)
}

func historyOptsFromFlags(cmd *cobra.Command, args []string) history.QueryOptions {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	stage, _ := cmd.Flags().GetString("stage")
	limit, _ := cmd.Flags().GetInt("limit")
	return history.QueryOptions{
		Query:      query,
		Stage:      types.Stage(stage),
		MaxResults: limit,
	}
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", "", "base directory for history (contains index/)")

	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("query", "", "match topic or report text")
		c.Flags().String("stage", "", "filter by final stage: done or error")
	}
	historyListCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")
	historyShowCmd.Flags().Bool("json", false, "output as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}

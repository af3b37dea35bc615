// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-engine/internal/search"
	"github.com/pdiddy/report-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one web search and print the evidence items",
	Long: `Search sends a single query to the configured web search API and prints
the results as they would enter the pipeline: title, URL, snippet, and
source label, with placeholders for missing fields. --save keeps the
results in a YAML file that --load prints again without a request.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "search query")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results, 1-10 (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the query and results to this YAML file")
	searchCmd.Flags().String("load", "", "print results from a saved YAML file instead of searching")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if load, _ := cmd.Flags().GetString("load"); load != "" {
		qf, err := search.ReadQueryFile(load)
		if err != nil {
			return err
		}
		return printItems(qf.Results, jsonOutput)
	}

	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("provide a query with --query or as arguments")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.Search.MaxResults = n
	}

	items, err := newSearcher(cfg.Search).Search(context.Background(), query)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := search.WriteQueryFile(save, query, cfg.Search, items, time.Now()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved to", save)
	}
	return printItems(items, jsonOutput)
}

func printItems(items []types.EvidenceItem, jsonOutput bool) error {
	if jsonOutput {
		return search.FormatJSON(items, os.Stdout)
	}
	search.FormatTable(items, os.Stdout)
	return nil
}

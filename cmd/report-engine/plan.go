// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-engine/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate search terms for a topic",
	Long: `Plan asks the language model for search terms that cover the topic and
prints the parsed list. No searches are run.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("topic", "", "report topic (required)")
	planCmd.Flags().String("description", "", "what the report should cover")
	planCmd.Flags().String("level", "", "academic level")
	planCmd.Flags().String("length", "", "target length in characters")
	planCmd.Flags().Bool("json", false, "output terms as JSON")
	_ = planCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}

	req := requestFromFlags(cmd, cfg.Defaults)
	terms, err := plan.New(gen, logger).Plan(context.Background(), req)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(terms)
	}
	for i, t := range terms {
		fmt.Fprintf(os.Stdout, "%d. %s\n", i+1, t)
	}
	return nil
}

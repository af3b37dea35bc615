// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-engine/internal/review"
	"github.com/pdiddy/report-engine/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Grade an existing draft and print the verdict",
	Long: `Review reads a draft from a file, asks the language model to grade it
against the report rubric, and prints the score, the improvement decision,
and the issues grouped by category. With --revise it also prints the
revised document when the verdict asks for improvement.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().String("file", "", "path to the draft (required)")
	reviewCmd.Flags().String("length", "", "target length in characters (default from config)")
	reviewCmd.Flags().Bool("revise", false, "run the revision pass when improvement is needed")
	reviewCmd.Flags().Bool("json", false, "output the verdict as JSON")
	_ = reviewCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading draft: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}

	length, _ := cmd.Flags().GetString("length")
	constraints := cfg.Defaults.Apply(types.Constraints{TargetLength: length})

	ctx := context.Background()
	verdict, err := review.NewReviewer(gen, cfg.Review, logger).Review(ctx, string(data), constraints)
	if err != nil {
		return err
	}

	var revised string
	if doRevise, _ := cmd.Flags().GetBool("revise"); doRevise && verdict.NeedsImprovement {
		revised, err = review.NewReviser(gen, logger).Revise(ctx, string(data), verdict)
		if err != nil {
			return err
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			types.Verdict
			Revised string `json:"revised,omitempty"`
		}{verdict, revised})
	}

	decision := "合格"
	if verdict.NeedsImprovement {
		decision = "改善必要"
	}
	fmt.Fprintf(os.Stdout, "総合評価: %d点 (%s)\n", verdict.Score, decision)
	if len(verdict.Issues) > 0 {
		fmt.Fprintln(os.Stdout, "\n問題点:")
		printIssues(os.Stdout, verdict.Issues)
	}
	if revised != "" {
		fmt.Fprintf(os.Stdout, "\n--- 改善版 ---\n%s\n", revised)
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/history"
	"github.com/pdiddy/report-engine/internal/output"
	"github.com/pdiddy/report-engine/internal/pipeline"
	"github.com/pdiddy/report-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full pipeline and write a report",
	Long: `Generate plans search terms for the topic, collects web evidence, drafts
the report, reviews it, and revises it once if the review asks for it.
Progress is printed as the run moves through each stage. The final report
is written to the output directory and the run is recorded in history.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("topic", "", "report topic (required)")
	generateCmd.Flags().String("description", "", "what the report should cover")
	generateCmd.Flags().String("level", "", "academic level (default from config: 大学学部)")
	generateCmd.Flags().String("length", "", "target length in characters (default from config: 1500)")
	generateCmd.Flags().String("output-dir", "", "directory for report files (default from config)")
	generateCmd.Flags().Bool("html", false, "also write an HTML rendering")
	generateCmd.Flags().Int("retries", -1, "re-run the whole pipeline this many times on transient failure (default from config)")
	generateCmd.Flags().Bool("json", false, "print the run record as JSON instead of progress lines")
	_ = generateCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := requestFromFlags(cmd, cfg.Defaults)
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Output.Dir = dir
	}
	if html, _ := cmd.Flags().GetBool("html"); html {
		cfg.Output.HTML = true
	}
	if retries, _ := cmd.Flags().GetInt("retries"); retries >= 0 {
		cfg.Run.Retries = retries
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := io.Writer(os.Stdout)
	if jsonOutput {
		progress = io.Discard
	}
	events := make(chan types.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			printEvent(progress, ev)
		}
	}()

	run, runErr := p.RunWithRetries(ctx, req, events, cfg.Run.Retries, cfg.Run.RetryPause)
	close(events)
	<-done

	if run != nil {
		recordHistory(cfg.History, run)
	}
	if runErr != nil {
		return runErr
	}

	files, err := output.NewWriter(cfg.Output, logger).Write(req.Topic, run.ID, run.Final)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*pipeline.Run
			Files output.Files `json:"files"`
		}{run, files})
	}

	fmt.Fprintf(os.Stdout, "\nReport written to %s\n", files.Markdown)
	if files.HTML != "" {
		fmt.Fprintf(os.Stdout, "HTML written to %s\n", files.HTML)
	}
	fmt.Fprintf(os.Stdout, "Run id: %s\n", run.ID)
	return nil
}

func requestFromFlags(cmd *cobra.Command, defaults types.Constraints) types.TopicRequest {
	topic, _ := cmd.Flags().GetString("topic")
	desc, _ := cmd.Flags().GetString("description")
	level, _ := cmd.Flags().GetString("level")
	length, _ := cmd.Flags().GetString("length")
	return types.TopicRequest{
		Topic: topic,
		Constraints: defaults.Apply(types.Constraints{
			Description:   desc,
			AcademicLevel: level,
			TargetLength:  length,
		}),
	}
}

// recordHistory saves run unless history is disabled. Failures are logged;
// they never fail the command.
func recordHistory(cfg types.HistoryConfig, run *pipeline.Run) {
	if cfg.Disabled {
		return
	}
	store, err := history.Open(cfg)
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()
	if err := store.Save(context.Background(), history.FromRun(run)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("saving run to history", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one report run through planning, collection,
// composition, review, and the optional revision, publishing an event at
// every transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/collect"
	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

// ErrStalled is the cancellation cause when a run publishes no event within
// the stall timeout.
var ErrStalled = errors.New("run stalled: no progress within the stall timeout")

// Planner produces search terms.
type Planner interface {
	Plan(ctx context.Context, req types.TopicRequest) ([]string, error)
}

// Collector gathers evidence for search terms.
type Collector interface {
	Collect(ctx context.Context, topic string, terms []string, onTerm collect.Observer) (collect.Result, error)
}

// Composer writes the draft.
type Composer interface {
	Compose(ctx context.Context, req types.TopicRequest, terms []string, evidence []types.EvidenceItem) (types.Draft, error)
}

// Reviewer grades the draft.
type Reviewer interface {
	Review(ctx context.Context, draft string, c types.Constraints) (types.Verdict, error)
}

// Reviser rewrites the draft from review feedback.
type Reviser interface {
	Revise(ctx context.Context, draft string, v types.Verdict) (string, error)
}

// Stages bundles the stage implementations a Pipeline drives.
type Stages struct {
	Planner   Planner
	Collector Collector
	Composer  Composer
	Reviewer  Reviewer
	Reviser   Reviser
}

// Run is the state of one pipeline invocation. It stays inspectable after a
// failure.
type Run struct {
	ID       string               `json:"id" yaml:"id"`
	Request  types.TopicRequest   `json:"request" yaml:"request"`
	Stage    types.Stage          `json:"stage" yaml:"stage"`
	Terms    []string             `json:"search_terms,omitempty" yaml:"search_terms,omitempty"`
	Evidence []types.EvidenceItem `json:"search_results,omitempty" yaml:"search_results,omitempty"`
	Draft    types.Draft          `json:"draft" yaml:"draft"`
	Verdict  *types.Verdict       `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Revised  bool                 `json:"revised" yaml:"revised"`
	Final    string               `json:"final_report,omitempty" yaml:"final_report,omitempty"`
	Warnings []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Err      error                `json:"-" yaml:"-"`
	Error    string               `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Pipeline runs reports one at a time.
type Pipeline struct {
	stages  Stages
	cfg     types.RunConfig
	log     *zap.Logger
	running atomic.Bool
	now     func() time.Time
}

// New returns a Pipeline over stages.
func New(stages Stages, cfg types.RunConfig, log *zap.Logger) *Pipeline {
	return &Pipeline{
		stages: stages,
		cfg:    cfg,
		log:    logging.OrNop(log).Named("pipeline"),
		now:    time.Now,
	}
}

// runner carries per-run state shared by the stage steps.
type runner struct {
	p        *Pipeline
	run      *Run
	events   chan<- types.Event
	activity chan struct{}
	log      *zap.Logger
}

// Run executes one report run. Events are sent on events (which may be nil)
// and the caller owns the channel. The returned Run is non-nil except when
// another run is already in progress.
func (p *Pipeline) Run(ctx context.Context, req types.TopicRequest, events chan<- types.Event) (*Run, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, types.ErrRunInProgress
	}
	defer p.running.Store(false)

	run := &Run{
		ID:        uuid.NewString(),
		Request:   req,
		Stage:     types.StageIdle,
		StartedAt: p.now(),
	}
	r := &runner{
		p:        p,
		run:      run,
		events:   events,
		activity: make(chan struct{}, 1),
		log:      p.log.With(zap.String("run_id", run.ID)),
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if p.cfg.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, p.cfg.Timeout)
		defer stop()
	}
	if p.cfg.StallTimeout > 0 {
		done := make(chan struct{})
		defer close(done)
		go r.watchdog(ctx, cancel, done)
	}

	if err := req.Validate(); err != nil {
		return run, r.fail(ctx, err)
	}
	if err := r.execute(ctx); err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrStalled) {
			err = fmt.Errorf("%w: %w", ErrStalled, err)
		}
		return run, r.fail(ctx, err)
	}
	return run, nil
}

func (r *runner) execute(ctx context.Context) error {
	req := r.run.Request

	r.transition(ctx, types.StagePlanning, "検索ワードを生成中...", "検索ワードの自律的生成を開始します")
	terms, err := r.p.stages.Planner.Plan(ctx, req)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	r.run.Terms = terms
	r.emit(ctx, types.Event{
		Stage:       types.StagePlanning,
		Level:       types.LevelSuccess,
		LogMessage:  fmt.Sprintf("%d個の検索ワードが生成されました", len(terms)),
		SearchTerms: terms,
	})

	r.transition(ctx, types.StageCollecting, "情報を収集中...", "検索ワードに基づいて情報収集を開始します")
	res, err := r.p.stages.Collector.Collect(ctx, req.Topic, terms, r.termObserver(ctx))
	if err != nil {
		return fmt.Errorf("collecting: %w", err)
	}
	r.run.Evidence = res.Items
	r.run.Warnings = append(r.run.Warnings, res.Warnings...)
	if res.Synthetic {
		r.emit(ctx, types.Event{
			Stage:      types.StageCollecting,
			Level:      types.LevelWarning,
			Message:    "検索結果が少ないですが、一般的な情報でレポートを作成します",
			LogMessage: "検索結果が得られなかったため、一般情報で処理を続行します",
		})
	}
	r.emit(ctx, types.Event{
		Stage:         types.StageCollecting,
		Level:         types.LevelSuccess,
		LogMessage:    fmt.Sprintf("%d件の情報を収集しました（重複%d件を除外）", len(res.Items), res.Duplicates),
		SearchResults: res.Items,
	})

	r.transition(ctx, types.StageComposing, "レポートを作成中...", "収集した情報に基づいてレポートを作成します")
	draft, err := r.p.stages.Composer.Compose(ctx, req, terms, res.Items)
	if err != nil {
		return fmt.Errorf("composing: %w", err)
	}
	r.run.Draft = draft
	if draft.Degraded {
		r.run.Warnings = append(r.run.Warnings, "draft generation failed; using the fallback document: "+draft.Cause)
		r.emit(ctx, types.Event{
			Stage:         types.StageComposing,
			Level:         types.LevelWarning,
			Message:       "API接続の問題により、簡易版のレポートを作成しました",
			LogMessage:    "レポート生成に失敗したため代替文書を使用します: " + draft.Cause,
			ReportContent: draft.Content,
		})
		// The fallback document is not reviewed.
		r.run.Final = draft.Content
		r.finish(ctx)
		return nil
	}
	r.emit(ctx, types.Event{
		Stage:         types.StageComposing,
		Level:         types.LevelSuccess,
		LogMessage:    "レポートの下書きが完成しました",
		ReportContent: draft.Content,
	})

	r.transition(ctx, types.StageReviewing, "レポートの品質を検証中...", "生成されたレポートの品質を検証します")
	verdict, err := r.p.stages.Reviewer.Review(ctx, draft.Content, req.Constraints)
	if err != nil {
		return fmt.Errorf("reviewing: %w", err)
	}
	r.run.Verdict = &verdict
	level := types.LevelSuccess
	if verdict.NeedsImprovement {
		level = types.LevelWarning
	}
	r.emit(ctx, types.Event{
		Stage:      types.StageReviewing,
		Level:      level,
		LogMessage: fmt.Sprintf("総合評価: %d点、問題点%d件", verdict.Score, len(verdict.Issues)),
		Verdict:    &verdict,
	})

	if !verdict.NeedsImprovement {
		r.run.Final = draft.Content
		r.finish(ctx)
		return nil
	}

	r.transition(ctx, types.StageRevising, "レポートを改善中...", "検証結果に基づいてレポートを改善します")
	revised, err := r.p.stages.Reviser.Revise(ctx, draft.Content, verdict)
	if err != nil {
		return fmt.Errorf("revising: %w", err)
	}
	r.run.Final = revised
	r.run.Revised = true
	r.emit(ctx, types.Event{
		Stage:         types.StageRevising,
		Level:         types.LevelSuccess,
		Message:       "レポートの改善が完了しました",
		LogMessage:    "検証結果に基づくレポートの改善が完了しました",
		ReportContent: revised,
	})
	r.finish(ctx)
	return nil
}

func (r *runner) termObserver(ctx context.Context) collect.Observer {
	return func(o collect.TermOutcome) {
		ev := types.Event{Stage: types.StageCollecting, Level: types.LevelInfo}
		switch o.Status {
		case collect.TermSearching:
			ev.Message = fmt.Sprintf("「%s」で検索中... (%d/%d)", o.Term, o.Index, o.Total)
			ev.LogMessage = fmt.Sprintf("検索ワード「%s」で情報を収集中...", o.Term)
		case collect.TermRetrying:
			ev.Level = types.LevelWarning
			ev.LogMessage = fmt.Sprintf("「%s」での検索を再試行しています (%d回目)", o.Term, o.Attempt)
		case collect.TermFound:
			ev.LogMessage = fmt.Sprintf("「%s」で%d件の結果が見つかりました", o.Term, o.Results)
		case collect.TermEmpty:
			ev.Level = types.LevelWarning
			ev.LogMessage = fmt.Sprintf("「%s」では結果が見つかりませんでした。他の検索ワードで続行します", o.Term)
		case collect.TermFailed:
			ev.Level = types.LevelWarning
			ev.LogMessage = fmt.Sprintf("「%s」での検索中にエラーが発生しました: %v。他の検索ワードで続行します", o.Term, o.Err)
		}
		r.emit(ctx, ev)
	}
}

func (r *runner) transition(ctx context.Context, stage types.Stage, msg, logMsg string) {
	r.run.Stage = stage
	r.log.Debug("stage", zap.String("stage", string(stage)))
	r.emit(ctx, types.Event{Stage: stage, Level: types.LevelInfo, Message: msg, LogMessage: logMsg})
}

func (r *runner) finish(ctx context.Context) {
	r.run.Stage = types.StageDone
	r.run.FinishedAt = r.p.now()
	r.log.Info("run complete",
		zap.Bool("revised", r.run.Revised),
		zap.Bool("degraded", r.run.Draft.Degraded),
		zap.Int("warnings", len(r.run.Warnings)))
	ev := types.Event{
		Stage:         types.StageDone,
		Level:         types.LevelSuccess,
		Message:       "レポート生成が完了しました",
		LogMessage:    "レポート生成プロセスが完了しました",
		SearchTerms:   r.run.Terms,
		SearchResults: r.run.Evidence,
		ReportContent: r.run.Final,
		Verdict:       r.run.Verdict,
	}
	if r.run.Draft.Degraded {
		ev.Level = types.LevelWarning
	}
	r.emit(ctx, ev)
}

// fail records err as the run's fatal error and publishes the error event.
// The event is sent even when ctx is already cancelled, as long as the
// receiver is ready.
func (r *runner) fail(ctx context.Context, err error) error {
	r.run.Stage = types.StageError
	r.run.Err = err
	r.run.Error = err.Error()
	r.run.FinishedAt = r.p.now()
	r.log.Warn("run failed", zap.Error(err), zap.Strings("warnings", r.run.Warnings))

	ev := r.stamp(types.Event{
		Stage:      types.StageError,
		Level:      types.LevelError,
		Message:    "エラー: " + err.Error(),
		LogMessage: "レポート生成中にエラーが発生しました: " + err.Error(),
	})
	if r.events != nil {
		if ctx.Err() == nil {
			select {
			case r.events <- ev:
			case <-ctx.Done():
			}
		} else {
			select {
			case r.events <- ev:
			default:
			}
		}
	}
	return err
}

func (r *runner) stamp(ev types.Event) types.Event {
	ev.RunID = r.run.ID
	ev.Time = r.p.now()
	return ev
}

// emit publishes ev unless ctx is done.
func (r *runner) emit(ctx context.Context, ev types.Event) {
	select {
	case r.activity <- struct{}{}:
	default:
	}
	if r.events == nil {
		return
	}
	select {
	case r.events <- r.stamp(ev):
	case <-ctx.Done():
	}
}

// watchdog cancels the run with ErrStalled when no event is published for
// StallTimeout.
func (r *runner) watchdog(ctx context.Context, cancel context.CancelCauseFunc, done <-chan struct{}) {
	t := time.NewTimer(r.p.cfg.StallTimeout)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-r.activity:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(r.p.cfg.StallTimeout)
		case <-t.C:
			r.log.Warn("run stalled, cancelling", zap.Duration("stall_timeout", r.p.cfg.StallTimeout))
			cancel(ErrStalled)
			return
		}
	}
}

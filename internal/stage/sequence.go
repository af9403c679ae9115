package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpcadm/hpcadm/internal/events"
	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/logger"
)

// Work is one unit of a stage: a named action against the cluster.
type Work struct {
	Name string
	Run  func(ctx context.Context) error
}

// Stage is a set of work that runs together. Work within a stage fans out
// concurrently; stages run strictly in order. Destructive stages are gated
// behind confirmation when the runner is configured to ask.
type Stage struct {
	Name        string
	Destructive bool
	Work        []Work
}

// Sequence is an ordered list of stages, e.g. a full cluster shutdown.
type Sequence struct {
	Name   string
	Stages []Stage
}

// Config controls how sequences run. Journal, Bus and Prompts are optional.
type Config struct {
	DryRun      bool
	Confirm     bool // ask before destructive stages
	Concurrency int  // parallel work per stage (default 4)
	Journal     journal.Store
	Bus         *events.Bus
	Prompts     *PromptChannel
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage   string
	Skipped bool
	Reason  string // set when skipped
	Errors  []error
}

// Runner executes sequences stage by stage.
type Runner struct {
	cfg Config
}

// NewRunner creates a sequence runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Runner{cfg: cfg}
}

// Run executes the sequence in stage order. A stage whose work reports any
// error stops the sequence, as does a declined confirmation; dry runs skip
// every stage. The returned results cover each stage that was considered,
// and the error summarizes why the sequence stopped early, if it did.
func (r *Runner) Run(ctx context.Context, seq Sequence) ([]StageResult, error) {
	var operationID string
	if r.cfg.Journal != nil && !r.cfg.DryRun {
		op, err := r.cfg.Journal.BeginOperation(ctx, journal.KindStage, seq.Name)
		if err != nil {
			return nil, fmt.Errorf("recording sequence start: %w", err)
		}
		operationID = op.ID
	}

	results := make([]StageResult, 0, len(seq.Stages))
	var runErr error

	for _, stage := range seq.Stages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if r.cfg.DryRun {
			results = append(results, r.skip(seq.Name, stage.Name, "dry run"))
			r.logPlanned(seq.Name, stage)
			continue
		}

		if stage.Destructive && r.cfg.Confirm && r.cfg.Prompts != nil {
			approved, err := r.cfg.Prompts.Ask(ctx, seq.Name,
				stage.Name, fmt.Sprintf("Run stage %q? It cannot be undone.", stage.Name))
			if err != nil {
				runErr = fmt.Errorf("confirming stage %s: %w", stage.Name, err)
				break
			}
			if !approved {
				results = append(results, r.skip(seq.Name, stage.Name, "declined"))
				runErr = fmt.Errorf("stage %s declined", stage.Name)
				break
			}
		}

		res := r.runStage(ctx, seq.Name, stage, operationID)
		results = append(results, res)
		if len(res.Errors) > 0 {
			runErr = fmt.Errorf("stage %s: %d of %d work items failed",
				stage.Name, len(res.Errors), len(stage.Work))
			break
		}
	}

	if r.cfg.Journal != nil && !r.cfg.DryRun {
		status, detail := sequenceOutcome(results, len(seq.Stages), runErr)
		if err := r.cfg.Journal.FinishOperation(ctx, operationID, status, detail); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"sequence": seq.Name,
				"error":    err,
			}).Warn("failed to record sequence outcome")
		}
	}

	return results, runErr
}

// runStage fans the stage's work out with bounded concurrency. Work errors
// are isolated per item and collected, never aborting siblings.
func (r *Runner) runStage(ctx context.Context, sequence string, stage Stage, operationID string) StageResult {
	started := time.Now()
	r.publish(events.TopicOperation, events.StageStartedEvent{
		Sequence:  sequence,
		Stage:     stage.Name,
		Work:      len(stage.Work),
		Timestamp: started,
	})
	logger.Log.WithFields(logrus.Fields{
		"sequence": sequence,
		"stage":    stage.Name,
		"work":     len(stage.Work),
	}).Info("Running stage")

	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, work := range stage.Work {
		w := work
		g.Go(func() error {
			err := runWork(gctx, w)
			state := journal.StatusCompleted
			detail := ""
			if err != nil {
				logger.Log.WithFields(logrus.Fields{
					"sequence": sequence,
					"stage":    stage.Name,
					"work":     w.Name,
				}).WithError(err).Error("Work failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", w.Name, err))
				mu.Unlock()
				state = journal.StatusFailed
				detail = err.Error()
			}
			r.saveWork(ctx, operationID, w.Name, state, detail)
			return nil
		})
	}
	_ = g.Wait()

	r.publish(events.TopicOperation, events.StageFinishedEvent{
		Sequence:  sequence,
		Stage:     stage.Name,
		Failed:    len(errs),
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	})

	return StageResult{Stage: stage.Name, Errors: errs}
}

// runWork isolates panics from a work function so one broken action cannot
// take down the sequence.
func runWork(ctx context.Context, w Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work panicked: %v", r)
		}
	}()
	return w.Run(ctx)
}

func (r *Runner) skip(sequence, stage, reason string) StageResult {
	r.publish(events.TopicOperation, events.StageSkippedEvent{
		Sequence:  sequence,
		Stage:     stage,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	logger.Log.WithFields(logrus.Fields{
		"sequence": sequence,
		"stage":    stage,
		"reason":   reason,
	}).Info("Skipping stage")
	return StageResult{Stage: stage, Skipped: true, Reason: reason}
}

func (r *Runner) logPlanned(sequence string, stage Stage) {
	for _, w := range stage.Work {
		logger.Log.WithFields(logrus.Fields{
			"sequence": sequence,
			"stage":    stage.Name,
			"work":     w.Name,
		}).Info("dry run: would run")
	}
}

func (r *Runner) publish(topic string, e events.Event) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, e)
	}
}

// saveWork records one work item's outcome under the sequence's journal
// operation.
func (r *Runner) saveWork(ctx context.Context, operationID, name, state, detail string) {
	if r.cfg.Journal == nil || operationID == "" {
		return
	}
	if err := r.cfg.Journal.SaveMember(ctx, operationID, name, state, detail); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"work":  name,
			"error": err,
		}).Warn("failed to record work outcome")
	}
}

// sequenceOutcome maps the run's results onto a journal status and detail.
func sequenceOutcome(results []StageResult, total int, runErr error) (string, string) {
	ran := 0
	for _, res := range results {
		if !res.Skipped && len(res.Errors) == 0 {
			ran++
		}
	}
	detail := fmt.Sprintf("%d/%d stages completed", ran, total)
	if runErr != nil {
		detail = fmt.Sprintf("%s: %s", detail, runErr)
	}
	switch {
	case runErr == nil && ran == total:
		return journal.StatusCompleted, detail
	case ran == 0:
		return journal.StatusFailed, detail
	default:
		return journal.StatusPartial, detail
	}
}

package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpcadm/hpcadm/internal/events"
	"github.com/hpcadm/hpcadm/internal/images"
	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/logger"
	"github.com/hpcadm/hpcadm/internal/sessions"
	"github.com/hpcadm/hpcadm/internal/wait"
	"github.com/hpcadm/hpcadm/internal/workspace"
)

// RunnerConfig configures a plan run. Workspace, Journal and Bus are
// optional; a nil field disables that concern.
type RunnerConfig struct {
	DryRun       bool
	Timeout      time.Duration
	PollInterval time.Duration
	Retries      int
	Workspace    *workspace.Manager
	Journal      journal.Store
	Bus          *events.Bus
}

// Runner applies build plans: it orders the images, submits the builds as a
// dependency group wait, and reports the outcome.
type Runner struct {
	images   *images.Client
	sessions *sessions.Client
	cfg      RunnerConfig
}

// NewRunner creates a plan runner over the image and session services.
func NewRunner(img *images.Client, sess *sessions.Client, cfg RunnerConfig) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Runner{images: img, sessions: sess, cfg: cfg}
}

// Summary is the outcome of a plan run.
type Summary struct {
	Plan      string
	Order     []string
	Completed []string
	Failed    []string
	Pending   []string
	Blocked   []string
	DryRun    bool
	Workspace string
}

// Succeeded reports whether every image in the plan was built.
func (s *Summary) Succeeded() bool {
	return len(s.Failed) == 0 && len(s.Pending) == 0 && len(s.Blocked) == 0
}

// Run applies the plan. Setup problems (a bad graph, an unusable workspace)
// come back as errors; build failures are reported through the Summary
// partitions instead.
func (r *Runner) Run(ctx context.Context, p *Plan) (*Summary, error) {
	g, err := BuildGraph(p)
	if err != nil {
		return nil, err
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Plan: p.Name, Order: order, DryRun: r.cfg.DryRun}

	if r.cfg.DryRun {
		logger.Log.WithFields(logrus.Fields{
			"plan":  p.Name,
			"order": order,
		}).Info("dry run: planned build order")
		return summary, nil
	}

	if r.cfg.Workspace != nil {
		ws, err := r.renderWorkspace(p, order)
		if err != nil {
			return nil, err
		}
		summary.Workspace = ws.Path
	}

	var operationID string
	if r.cfg.Journal != nil {
		op, err := r.cfg.Journal.BeginOperation(ctx, journal.KindPlan, p.Name)
		if err != nil {
			return nil, fmt.Errorf("recording plan start: %w", err)
		}
		operationID = op.ID
	}

	members := r.buildMembers(p, order)
	result, err := r.wait(ctx, p.Name, members, operationID)
	if err != nil {
		return nil, err
	}

	summary.Completed = wait.Names(result.Completed)
	summary.Failed = wait.Names(result.Failed)
	summary.Pending = wait.Names(result.Pending)
	summary.Blocked = wait.Names(result.Blocked)

	if r.cfg.Journal != nil {
		// Blocked members never transition, so they need an explicit record.
		for _, m := range result.Blocked {
			if err := r.cfg.Journal.SaveMember(ctx, operationID, m.Name(), wait.StateBlocked.String(), ""); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"member": m.Name(),
					"error":  err,
				}).Warn("failed to record member state")
			}
		}
		status, detail := journalOutcome(summary, len(p.Images))
		if err := r.cfg.Journal.FinishOperation(ctx, operationID, status, detail); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"plan":  p.Name,
				"error": err,
			}).Warn("failed to record plan outcome")
		}
	}

	return summary, nil
}

// renderWorkspace writes the plan entries as JSON payload files so the run
// leaves an inspectable artifact of what was submitted.
func (r *Runner) renderWorkspace(p *Plan, order []string) (*workspace.Workspace, error) {
	ws, err := r.cfg.Workspace.Create(fmt.Sprintf("plan-%s", p.Name))
	if err != nil {
		return nil, fmt.Errorf("creating plan workspace: %w", err)
	}

	specs := make(map[string]ImageSpec, len(p.Images))
	for _, img := range p.Images {
		specs[img.Name] = img
	}
	for _, name := range order {
		data, err := json.MarshalIndent(specs[name], "", "  ")
		if err != nil {
			return nil, err
		}
		if _, err := ws.WriteFile(name+".json", data); err != nil {
			return nil, fmt.Errorf("rendering payload for %s: %w", name, err)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"plan":      p.Name,
		"workspace": ws.Path,
	}).Debug("rendered plan payloads")
	return ws, nil
}

// buildMembers constructs one build member per image, wired with the
// dependency edges the image_ref fields imply, in planned build order.
func (r *Runner) buildMembers(p *Plan, order []string) []wait.DependencyMember {
	specs := make(map[string]ImageSpec, len(p.Images))
	for _, img := range p.Images {
		specs[img.Name] = img
	}

	byName := make(map[string]*images.BuildMember, len(order))
	members := make([]wait.DependencyMember, 0, len(order))
	for _, name := range order {
		spec := specs[name]
		m := images.NewBuildMember(r.images, r.sessions, spec.Name, spec.Base, spec.Configuration)
		byName[name] = m
		members = append(members, m)
	}
	for _, name := range order {
		if ref := specs[name].ImageRef; ref != "" {
			byName[name].AddDependency(byName[ref])
		}
	}
	return members
}

// wait runs the dependency group wait, publishing progress events and
// recording member transitions in the journal as they happen.
func (r *Runner) wait(ctx context.Context, planName string, members []wait.DependencyMember, operationID string) (*wait.Result, error) {
	group := fmt.Sprintf("plan %s", planName)

	opts := []wait.Option{wait.WithTransitionFunc(func(m wait.Member, state wait.State) {
		if r.cfg.Bus != nil {
			r.cfg.Bus.Publish(events.TopicWait, events.MemberStateEvent{
				Group:     group,
				Member:    m.Name(),
				State:     state,
				Timestamp: time.Now(),
			})
		}
		if r.cfg.Journal != nil && operationID != "" {
			if err := r.cfg.Journal.SaveMember(ctx, operationID, m.Name(), state.String(), ""); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"member": m.Name(),
					"error":  err,
				}).Warn("failed to record member state")
			}
		}
	})}
	if r.cfg.PollInterval > 0 {
		opts = append(opts, wait.WithPollInterval(r.cfg.PollInterval))
	}
	if r.cfg.Retries > 0 {
		opts = append(opts, wait.WithRetries(r.cfg.Retries))
	}

	plain := make([]wait.Member, len(members))
	for i, m := range members {
		plain[i] = m
	}

	dgw, err := wait.NewDependencyGroupWaiter(group, members, r.cfg.Timeout, opts...)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(events.TopicWait, events.GroupStartedEvent{
			Group:     group,
			Members:   wait.Names(plain),
			Timestamp: started,
		})
	}

	result := dgw.Wait(ctx)

	if r.cfg.Bus != nil {
		// Blocked members never transition; report their final state so
		// observers see the whole roster settle.
		for _, m := range result.Blocked {
			r.cfg.Bus.Publish(events.TopicWait, events.MemberStateEvent{
				Group:     group,
				Member:    m.Name(),
				State:     wait.StateBlocked,
				Timestamp: time.Now(),
			})
		}
		r.cfg.Bus.Publish(events.TopicWait, events.GroupFinishedEvent{
			Group:     group,
			Completed: len(result.Completed),
			Failed:    len(result.Failed),
			Pending:   len(result.Pending),
			Blocked:   len(result.Blocked),
			Duration:  time.Since(started),
			Timestamp: time.Now(),
		})
	}
	return result, nil
}

// journalOutcome maps a summary onto a journal status and detail line.
func journalOutcome(s *Summary, total int) (string, string) {
	detail := fmt.Sprintf("%d/%d images built", len(s.Completed), total)
	switch {
	case s.Succeeded():
		return journal.StatusCompleted, detail
	case len(s.Completed) == 0:
		return journal.StatusFailed, detail
	default:
		return journal.StatusPartial, detail
	}
}

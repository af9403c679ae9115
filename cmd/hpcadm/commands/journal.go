package commands

import (
	"context"
	"fmt"

	"github.com/hpcadm/hpcadm/internal/journal"
	"github.com/hpcadm/hpcadm/internal/logger"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// openJournal opens the operation journal at the configured path. It returns
// nil when the journal cannot be opened; callers treat that as journaling
// disabled rather than failing the cluster operation.
func openJournal(ctx context.Context) journal.Store {
	path := cfg.Journal.Path
	if path == "" {
		p, err := journal.DefaultPath()
		if err != nil {
			logger.Log.WithError(err).Warn("Journal disabled")
			return nil
		}
		path = p
	}

	store, err := journal.NewStore(ctx, path)
	if err != nil {
		logger.Log.WithError(err).Warn("Journal disabled")
		return nil
	}
	return store
}

// beginOperation opens the journal and records the start of an operation.
// Both return values are nil when journaling is unavailable.
func beginOperation(ctx context.Context, kind, name string) (journal.Store, *journal.Operation) {
	store := openJournal(ctx)
	if store == nil {
		return nil, nil
	}

	op, err := store.BeginOperation(ctx, kind, name)
	if err != nil {
		logger.Log.WithError(err).Warn("Journal disabled")
		store.Close()
		return nil, nil
	}
	return store, op
}

// saveMemberStates is a wait option persisting member state changes under
// the given journal operation as they happen.
func saveMemberStates(ctx context.Context, store journal.Store, operationID string) wait.Option {
	return wait.WithTransitionFunc(func(m wait.Member, s wait.State) {
		if err := store.SaveMember(ctx, operationID, m.Name(), s.String(), ""); err != nil {
			logger.Log.WithError(err).Warn("Failed to record member state")
		}
	})
}

// finishWait records the final status of a journaled group wait.
func finishWait(ctx context.Context, store journal.Store, op *journal.Operation, result *wait.Result, total int) {
	var status string
	switch {
	case result.AllCompleted():
		status = journal.StatusCompleted
	case len(result.Completed) == 0:
		status = journal.StatusFailed
	default:
		status = journal.StatusPartial
	}
	detail := fmt.Sprintf("%d/%d members completed", len(result.Completed), total)
	if err := store.FinishOperation(ctx, op.ID, status, detail); err != nil {
		logger.Log.WithError(err).Warn("Failed to record operation outcome")
	}
}

// finishCondition records the final status of a journaled single-condition
// wait.
func finishCondition(ctx context.Context, store journal.Store, op *journal.Operation, ok bool, detail string) {
	status := journal.StatusCompleted
	if !ok {
		status = journal.StatusFailed
	}
	if err := store.FinishOperation(ctx, op.ID, status, detail); err != nil {
		logger.Log.WithError(err).Warn("Failed to record operation outcome")
	}
}

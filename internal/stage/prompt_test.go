package stage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func approveAll(ctx context.Context, p Prompt) (bool, error) {
	return true, nil
}

func TestPromptAskAndReceive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pc := NewPromptChannel(4, func(ctx context.Context, p Prompt) (bool, error) {
		return p.Stage == "power off compute", nil
	})
	pc.Start(ctx)
	defer pc.Stop()

	approved, err := pc.Ask(ctx, "shutdown", "power off compute", "proceed?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !approved {
		t.Error("Ask() = false, want approval")
	}

	approved, err = pc.Ask(ctx, "shutdown", "power off management", "proceed?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if approved {
		t.Error("Ask() = true, want denial")
	}
}

func TestPromptConcurrentAskers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pc := NewPromptChannel(8, approveAll)
	pc.Start(ctx)
	defer pc.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	approvals := 0

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := pc.Ask(ctx, "shutdown", fmt.Sprintf("stage-%d", n), "proceed?")
			if err != nil {
				t.Errorf("Ask(stage-%d) error = %v", n, err)
				return
			}
			if ok {
				mu.Lock()
				approvals++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if approvals != 4 {
		t.Errorf("got %d approvals, want 4", approvals)
	}
}

func TestPromptAskCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pc := NewPromptChannel(1, approveAll)
	pc.Start(ctx)
	defer pc.Stop()

	askCtx, askCancel := context.WithCancel(context.Background())
	askCancel()

	if _, err := pc.Ask(askCtx, "shutdown", "stage", "proceed?"); err != context.Canceled {
		t.Errorf("Ask() error = %v, want context.Canceled", err)
	}
}

func TestPromptStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pc := NewPromptChannel(4, approveAll)
	pc.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		pc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}
}

func TestPromptAskError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pc := NewPromptChannel(4, func(ctx context.Context, p Prompt) (bool, error) {
		return false, fmt.Errorf("terminal went away")
	})
	pc.Start(ctx)
	defer pc.Stop()

	_, err := pc.Ask(ctx, "shutdown", "stage", "proceed?")
	if err == nil || err.Error() != "terminal went away" {
		t.Errorf("Ask() error = %v, want the decision error", err)
	}
}

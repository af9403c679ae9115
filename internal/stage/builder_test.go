package stage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hpcadm/hpcadm/internal/cron"
	"github.com/hpcadm/hpcadm/internal/gateway"
	"github.com/hpcadm/hpcadm/internal/inventory"
	"github.com/hpcadm/hpcadm/internal/power"
)

// fakeCluster emulates the power, scheduler and inventory services for
// sequence tests. Transitions move component states immediately unless the
// component is registered as stuck.
type fakeCluster struct {
	mu          sync.Mutex
	states      map[string]string
	stuck       map[string]bool
	transitions []power.Transition
	toggles     []bool
	discoveries int
	statuses    []inventory.DiscoveryStatus
}

func newFakeCluster(states map[string]string) *fakeCluster {
	return &fakeCluster{
		states: states,
		stuck:  make(map[string]bool),
	}
}

func (f *fakeCluster) recordedTransitions() []power.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]power.Transition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

func (f *fakeCluster) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/power/v1/transitions":
			var req power.Transition
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			target := power.StateOn
			if req.Operation == power.OperationOff || req.Operation == power.OperationForceOff {
				target = power.StateOff
			}
			f.mu.Lock()
			f.transitions = append(f.transitions, req)
			for _, xname := range req.Xnames {
				if !f.stuck[xname] {
					f.states[xname] = target
				}
			}
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(power.TransitionCreation{
				TransitionID: uuid.New(),
				Operation:    req.Operation,
			})

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/power/v1/power-status/"):
			xname := strings.TrimPrefix(r.URL.Path, "/power/v1/power-status/")
			f.mu.Lock()
			state, ok := f.states[xname]
			f.mu.Unlock()
			if !ok {
				http.Error(w, "unknown component", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(power.PowerState{Xname: xname, State: state})

		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/scheduler/v1/jobs/"):
			var patch struct {
				Suspended bool `json:"suspended"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.toggles = append(f.toggles, patch.Suspended)
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodPost && r.URL.Path == "/inventory/v1/discover":
			f.mu.Lock()
			f.discoveries++
			f.statuses = []inventory.DiscoveryStatus{{ID: "d1", Status: inventory.DiscoveryComplete}}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodGet && r.URL.Path == "/inventory/v1/discovery-status":
			f.mu.Lock()
			statuses := f.statuses
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(statuses)

		default:
			http.NotFound(w, r)
		}
	}
}

func testBuilder(t *testing.T, fake *fakeCluster) *Builder {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	gw, err := gateway.New(gateway.Config{
		BaseURL: srv.URL,
		Retry: gateway.RetryConfig{
			InitialInterval:     5 * time.Millisecond,
			MaxInterval:         20 * time.Millisecond,
			MaxElapsedTime:      500 * time.Millisecond,
			Multiplier:          2.0,
			RandomizationFactor: 0.1,
		},
	})
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}

	return &Builder{
		Power:        power.NewClient(gw),
		Locks:        power.NewTransitionLocks(),
		Inventory:    inventory.NewClient(gw),
		Cron:         cron.NewClient(gw),
		CronJob:      "hardware-discovery",
		Timeout:      time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestBuilderShutdown(t *testing.T) {
	compute := []string{"x1000c0s0b0n0", "x1000c0s1b0n0"}
	mgmt := []string{"x3000c0s1b0n0"}
	fake := newFakeCluster(map[string]string{
		"x1000c0s0b0n0": power.StateOn,
		"x1000c0s1b0n0": power.StateOn,
		"x3000c0s1b0n0": power.StateOn,
	})

	b := testBuilder(t, fake)
	seq := b.Shutdown(compute, mgmt)

	if len(seq.Stages) != 3 {
		t.Fatalf("shutdown has %d stages, want 3", len(seq.Stages))
	}
	if seq.Stages[0].Destructive || !seq.Stages[1].Destructive || !seq.Stages[2].Destructive {
		t.Error("power stages must be destructive; the scheduler stage must not be")
	}

	results, err := NewRunner(Config{}).Run(context.Background(), seq)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, res := range results {
		if len(res.Errors) != 0 {
			t.Errorf("stage %s errors = %v", res.Stage, res.Errors)
		}
	}

	transitions := fake.recordedTransitions()
	if len(transitions) != 2 {
		t.Fatalf("recorded %d transitions, want 2", len(transitions))
	}
	if transitions[0].Operation != power.OperationOff || !reflect.DeepEqual(transitions[0].Xnames, compute) {
		t.Errorf("first transition = %+v, want compute off", transitions[0])
	}
	if !reflect.DeepEqual(transitions[1].Xnames, mgmt) {
		t.Errorf("second transition = %+v, want management off", transitions[1])
	}

	fake.mu.Lock()
	toggles := append([]bool(nil), fake.toggles...)
	fake.mu.Unlock()
	if len(toggles) != 1 || !toggles[0] {
		t.Errorf("scheduler toggles = %v, want [true]", toggles)
	}
}

func TestBuilderStartup(t *testing.T) {
	compute := []string{"x1000c0s0b0n0"}
	mgmt := []string{"x3000c0s1b0n0"}
	fake := newFakeCluster(map[string]string{
		"x1000c0s0b0n0": power.StateOff,
		"x3000c0s1b0n0": power.StateOff,
	})

	b := testBuilder(t, fake)
	seq := b.Startup(compute, mgmt)

	if len(seq.Stages) != 4 {
		t.Fatalf("startup has %d stages, want 4", len(seq.Stages))
	}

	if _, err := NewRunner(Config{}).Run(context.Background(), seq); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	transitions := fake.recordedTransitions()
	if len(transitions) != 2 {
		t.Fatalf("recorded %d transitions, want 2", len(transitions))
	}
	// Management powers on before compute
	if !reflect.DeepEqual(transitions[0].Xnames, mgmt) || transitions[0].Operation != power.OperationOn {
		t.Errorf("first transition = %+v, want management on", transitions[0])
	}
	if !reflect.DeepEqual(transitions[1].Xnames, compute) {
		t.Errorf("second transition = %+v, want compute on", transitions[1])
	}

	fake.mu.Lock()
	discoveries := fake.discoveries
	toggles := append([]bool(nil), fake.toggles...)
	fake.mu.Unlock()
	if discoveries == 0 {
		t.Error("startup never triggered hardware discovery")
	}
	if len(toggles) != 1 || toggles[0] {
		t.Errorf("scheduler toggles = %v, want [false]", toggles)
	}
}

func TestBuilderShutdownStopsWhenPowerFails(t *testing.T) {
	compute := []string{"x1000c0s0b0n0", "x1000c0s1b0n0"}
	mgmt := []string{"x3000c0s1b0n0"}
	fake := newFakeCluster(map[string]string{
		"x1000c0s0b0n0": power.StateOn,
		"x1000c0s1b0n0": power.StateOn,
		"x3000c0s1b0n0": power.StateOn,
	})
	fake.stuck["x1000c0s1b0n0"] = true

	b := testBuilder(t, fake)
	b.Timeout = 80 * time.Millisecond

	_, err := NewRunner(Config{}).Run(context.Background(), b.Shutdown(compute, mgmt))
	if err == nil {
		t.Fatal("Run() = nil error, want failure from the stuck component")
	}

	// The management power-off must not have been attempted.
	transitions := fake.recordedTransitions()
	if len(transitions) != 1 {
		t.Fatalf("recorded %d transitions, want only the compute attempt", len(transitions))
	}
	if !reflect.DeepEqual(transitions[0].Xnames, compute) {
		t.Errorf("transition = %+v, want compute off", transitions[0])
	}
}

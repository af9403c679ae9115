package events

import (
	"time"

	"github.com/hpcadm/hpcadm/internal/wait"
)

// Event is the base interface for all progress events.
type Event interface {
	EventType() string
	Subject() string
}

// Topic constants
const (
	TopicWait      = "wait"
	TopicOperation = "operation"
)

// Event type constants
const (
	EventTypeGroupStarted  = "wait.group_started"
	EventTypeMemberState   = "wait.member_state"
	EventTypeGroupFinished = "wait.group_finished"
	EventTypeStageStarted  = "operation.stage_started"
	EventTypeStageSkipped  = "operation.stage_skipped"
	EventTypeStageFinished = "operation.stage_finished"
)

// GroupStartedEvent is published when a group wait begins, carrying the
// member roster so observers can seed their views.
type GroupStartedEvent struct {
	Group     string
	Members   []string
	Timestamp time.Time
}

func (e GroupStartedEvent) EventType() string { return EventTypeGroupStarted }
func (e GroupStartedEvent) Subject() string   { return e.Group }

// MemberStateEvent is published when a member of a group wait changes state.
type MemberStateEvent struct {
	Group     string
	Member    string
	State     wait.State
	Timestamp time.Time
}

func (e MemberStateEvent) EventType() string { return EventTypeMemberState }
func (e MemberStateEvent) Subject() string   { return e.Member }

// GroupFinishedEvent carries the final partition counts of a group wait.
type GroupFinishedEvent struct {
	Group     string
	Completed int
	Failed    int
	Pending   int
	Blocked   int
	Duration  time.Duration
	Timestamp time.Time
}

func (e GroupFinishedEvent) EventType() string { return EventTypeGroupFinished }
func (e GroupFinishedEvent) Subject() string   { return e.Group }

// StageStartedEvent is published when a stage of a sequence begins.
type StageStartedEvent struct {
	Sequence  string
	Stage     string
	Work      int
	Timestamp time.Time
}

func (e StageStartedEvent) EventType() string { return EventTypeStageStarted }
func (e StageStartedEvent) Subject() string   { return e.Stage }

// StageSkippedEvent is published when a stage is skipped (dry run or a
// declined confirmation).
type StageSkippedEvent struct {
	Sequence  string
	Stage     string
	Reason    string
	Timestamp time.Time
}

func (e StageSkippedEvent) EventType() string { return EventTypeStageSkipped }
func (e StageSkippedEvent) Subject() string   { return e.Stage }

// StageFinishedEvent is published when a stage finishes, with the count of
// work items that failed.
type StageFinishedEvent struct {
	Sequence  string
	Stage     string
	Failed    int
	Duration  time.Duration
	Timestamp time.Time
}

func (e StageFinishedEvent) EventType() string { return EventTypeStageFinished }
func (e StageFinishedEvent) Subject() string   { return e.Stage }

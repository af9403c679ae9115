package stage

import (
	"context"
)

// Prompt is a confirmation request raised before a destructive stage runs.
type Prompt struct {
	Sequence   string
	Stage      string
	Question   string
	responseCh chan Reply
}

// Reply carries the operator's decision back to the runner.
type Reply struct {
	Approved bool
	Err      error
}

// AskFunc answers prompts. The CLI wires it to the terminal; tests wire it
// to canned decisions.
type AskFunc func(ctx context.Context, p Prompt) (bool, error)

// PromptChannel brokers confirmation prompts between a running sequence and
// whoever can approve destructive stages, without the runner holding a
// reference to the terminal.
type PromptChannel struct {
	promptCh chan Prompt
	askFn    AskFunc
	done     chan struct{}
}

// NewPromptChannel creates a prompt channel with the given buffer size and
// decision function.
func NewPromptChannel(bufferSize int, askFn AskFunc) *PromptChannel {
	return &PromptChannel{
		promptCh: make(chan Prompt, bufferSize),
		askFn:    askFn,
		done:     make(chan struct{}),
	}
}

// Start launches the prompt handler goroutine. It processes prompts until
// the context is cancelled.
func (pc *PromptChannel) Start(ctx context.Context) {
	go pc.handlePrompts(ctx)
}

func (pc *PromptChannel) handlePrompts(ctx context.Context) {
	defer close(pc.done)

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-pc.promptCh:
			approved, err := pc.askFn(ctx, p)

			// The decision may have taken a while; prefer reporting a
			// cancellation that happened during it.
			select {
			case <-ctx.Done():
				p.responseCh <- Reply{Err: ctx.Err()}
				return
			default:
				p.responseCh <- Reply{Approved: approved, Err: err}
			}
		}
	}
}

// Ask submits a prompt and waits for the decision. It respects context
// cancellation at both the send and receive stages.
func (pc *PromptChannel) Ask(ctx context.Context, sequence, stage, question string) (bool, error) {
	responseCh := make(chan Reply, 1)

	p := Prompt{
		Sequence:   sequence,
		Stage:      stage,
		Question:   question,
		responseCh: responseCh,
	}

	select {
	case pc.promptCh <- p:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case reply := <-responseCh:
		if reply.Err != nil {
			return false, reply.Err
		}
		return reply.Approved, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Stop blocks until the handler goroutine has exited.
func (pc *PromptChannel) Stop() {
	<-pc.done
}

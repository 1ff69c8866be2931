package command

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/oscpeer/internal/pkg/util/fsm"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// Chain states.
const (
	StateNotStarted = "notStarted"
	StateSubmitted  = "submitted"
	StatePolling    = "polling"
	StateTerminal   = "terminal"
)

// Chain events.
const (
	// EventSubmit sends the execute request.
	EventSubmit = "submit"
	// EventProgress schedules the next status poll.
	EventProgress = "progress"
	// EventFinish delivers the final reply.
	EventFinish = "finish"
)

// chain is one command instance. All of its methods run on the scheduler,
// one at a time, so it needs no locking.
type chain struct {
	runner *Runner
	ctx    context.Context
	req    Request
	cb     Callback
	logger log.Logger

	// handle is the command id from the execute reply. It is the only thing
	// a status poll carries.
	handle  value.Value
	polls   int
	started time.Time

	fsm *fsm.FSM
}

func (r *Runner) newChain(ctx context.Context, req Request, cb Callback) *chain {
	c := &chain{
		runner: r,
		ctx:    ctx,
		req:    req,
		cb:     cb,
		logger: r.logger.WithValues("command", req.Name, "chain", r.seq.Add(1)),
	}

	events := fsm.Events{
		{Name: EventSubmit, Src: []string{StateNotStarted}, Dst: StateSubmitted},
		{Name: EventProgress, Src: []string{StateSubmitted, StatePolling}, Dst: StatePolling},
		{Name: EventFinish, Src: []string{StateSubmitted, StatePolling}, Dst: StateTerminal},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			c.logger.Debug("Command chain transition", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
		"enter_" + StateSubmitted: fsmutil.WrapEvent(c.enterSubmitted),
		"enter_" + StateTerminal:  fsmutil.WrapEvent(c.enterTerminal),
	}

	c.fsm = fsm.NewFSM(StateNotStarted, events, callbacks)
	return c
}

func (c *chain) start() {
	c.cb(Reply{Pending: true})
	c.fire(EventSubmit)

	transport.Post(c.ctx, c.runner.transport, osc.CommandExecutePath, c.req, c.onResponse)
}

// onResponse evaluates the execute reply and every poll reply alike.
func (c *chain) onResponse(status int, body value.Value) {
	if !isInProgress(body) {
		c.fire(EventFinish, status, body)
		c.cb(Reply{StatusCode: status, Body: body})
		return
	}

	id, _ := value.Lookup(body, osc.FieldID)
	switch {
	case c.handle == nil:
		c.handle = id
	case id != nil && !sameHandle(c.handle, id):
		c.logger.Warn("Camera reported a different command id, keeping the first",
			"id", c.handle.Text(), "reported", id.Text())
	}

	c.fire(EventProgress)
	c.runner.sched.AfterFunc(c.runner.interval, c.poll)
}

func (c *chain) poll() {
	c.polls++
	c.runner.observer.PollIssued(c.req.Name)
	c.logger.Debug("Polling command status", "poll", c.polls)

	transport.Post(c.ctx, c.runner.transport, osc.CommandStatusPath, statusRequest(c.handle), c.onResponse)
}

func (c *chain) fire(event string, args ...any) {
	// Transitions are in-memory; the caller's cancellation must not abort them.
	err := c.fsm.Event(context.WithoutCancel(c.ctx), event, args...)
	if err = fsmutil.IgnoreNoTransition(err); err != nil {
		c.logger.Error(err, "Invalid command chain transition", "event", event, "state", c.fsm.Current())
	}
}

func (c *chain) enterSubmitted(_ context.Context, _ *fsm.Event) error {
	c.started = c.runner.clock.Now()
	c.runner.observer.CommandStarted(c.req.Name)
	c.logger.Info("Executing command")
	return nil
}

func (c *chain) enterTerminal(_ context.Context, e *fsm.Event) error {
	var (
		status int
		body   value.Value
	)
	if len(e.Args) > 0 {
		status, _ = e.Args[0].(int)
	}
	if len(e.Args) > 1 {
		body, _ = e.Args[1].(value.Value)
	}

	state, _ := value.LookupString(body, osc.FieldState)
	elapsed := c.runner.clock.Since(c.started)
	c.runner.observer.CommandFinished(c.req.Name, state, status, elapsed)

	if body == nil {
		c.logger.Warn("Command finished without a response body", "status", status, "polls", c.polls)
		return nil
	}
	c.logger.Info("Command finished", "status", status, "state", state, "polls", c.polls, "elapsed", elapsed)
	return nil
}

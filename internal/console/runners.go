package console

import (
	"fmt"
	"sync/atomic"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
)

var _ core.RunnerSource = (*Runners)(nil)

// Runners holds the runner built from the current camera settings. Chains
// already running keep the runner they started with.
type Runners struct {
	sched    loop.Scheduler
	observer command.Observer
	current  atomic.Pointer[binding]
}

type binding struct {
	osc       options.OSCOptions
	transport *transport.HTTP
	runner    *command.Runner
}

// NewRunners builds the first runner from o.
func NewRunners(sched loop.Scheduler, observer command.Observer, o *options.OSCOptions) (*Runners, error) {
	rs := &Runners{sched: sched, observer: observer}
	if err := rs.Reload(o); err != nil {
		return nil, err
	}
	return rs, nil
}

// Runner returns the current runner.
func (rs *Runners) Runner() *command.Runner {
	return rs.current.Load().runner
}

// Host returns the camera host of the current runner.
func (rs *Runners) Host() string {
	return rs.current.Load().transport.Host()
}

// Reload replaces the runner when o differs from the settings in use.
func (rs *Runners) Reload(o *options.OSCOptions) error {
	if err := utilerrors.NewAggregate(o.Validate()); err != nil {
		return fmt.Errorf("invalid camera settings: %w", err)
	}

	old := rs.current.Load()
	if old != nil && old.osc == *o {
		return nil
	}

	tr := transport.NewHTTP(o.Host, rs.sched)
	b := &binding{
		osc:       *o,
		transport: tr,
		runner: command.NewRunner(tr, rs.sched,
			command.WithInterval(o.PollingInterval),
			command.WithObserver(rs.observer),
		),
	}
	rs.current.Store(b)

	if old != nil {
		old.transport.CloseIdleConnections()
	}
	log.Info("Camera runner configured", "host", o.Host, "pollingInterval", o.PollingInterval)
	return nil
}

package command

import "time"

// Observer is notified of command chain milestones. Implementations must be
// safe for concurrent use when several runners share one.
type Observer interface {
	CommandStarted(name string)
	PollIssued(name string)
	CommandFinished(name, state string, status int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CommandStarted(string)                                {}
func (nopObserver) PollIssued(string)                                    {}
func (nopObserver) CommandFinished(string, string, int, time.Duration) {}

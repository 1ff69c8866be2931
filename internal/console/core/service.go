// Package core holds the console's use cases: fetching camera endpoints and
// running commands on behalf of the HTTP and MQTT front ends.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// ErrUnknownEndpoint is returned by Fetch for names other than those in Endpoints.
var ErrUnknownEndpoint = errors.New("unknown camera endpoint")

// Endpoints maps the console's endpoint names to camera paths.
var Endpoints = map[string]string{
	"info":            osc.InfoPath,
	"state":           osc.StatePath,
	"checkForUpdates": osc.CheckForUpdatesPath,
}

// RunnerSource returns the runner for new requests. The runner may change
// when the configuration is reloaded.
type RunnerSource interface {
	Runner() *command.Runner
}

// ResultNotifier delivers the result of a command received from a remote client.
type ResultNotifier interface {
	Notify(ctx context.Context, name string, res Result) error
}

// Result is the JSON form of a terminal reply.
type Result struct {
	Status int         `json:"status"`
	Body   value.Value `json:"body"`

	// Error is set when the request never reached the camera.
	Error string `json:"error,omitempty"`
}

// NewResult converts a reply.
func NewResult(rep command.Reply) Result {
	return Result{Status: rep.StatusCode, Body: rep.Body}
}

// Service implements the console's use cases.
type Service struct {
	runners  RunnerSource
	notifier ResultNotifier
}

// New creates a Service. notifier may be nil when no remote clients exist.
func New(runners RunnerSource, notifier ResultNotifier) *Service {
	return &Service{
		runners:  runners,
		notifier: notifier,
	}
}

// Fetch issues a GET to the named endpoint and waits for the reply.
func (s *Service) Fetch(ctx context.Context, endpoint string) (command.Reply, error) {
	path, ok := Endpoints[endpoint]
	if !ok {
		return command.Reply{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}
	return s.runners.Runner().AwaitFetch(ctx, path)
}

// Execute runs a command and waits for its terminal reply.
func (s *Service) Execute(ctx context.Context, name string, params map[string]any) (command.Reply, error) {
	return s.runners.Runner().Await(ctx, name, params)
}

// ExecuteAndNotify runs a command and hands the terminal reply to the notifier.
func (s *Service) ExecuteAndNotify(ctx context.Context, name string, params map[string]any) error {
	rep, err := s.Execute(ctx, name, params)
	if err != nil {
		return fmt.Errorf("command %s did not finish: %w", name, err)
	}
	return s.Notify(ctx, name, NewResult(rep))
}

// Notify forwards res to the notifier, if any.
func (s *Service) Notify(ctx context.Context, name string, res Result) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, name, res); err != nil {
		return fmt.Errorf("failed to publish result of %s: %w", name, err)
	}
	return nil
}

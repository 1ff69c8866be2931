// Package ctl implements the one-shot camera commands of oscpeer-ctl.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
)

// ErrNoResult is returned when the camera sent no usable reply.
var ErrNoResult = errors.New("camera returned no result")

// Config holds what a ctl invocation needs.
type Config struct {
	OSCOptions    *options.OSCOptions
	RenderOptions *options.RenderOptions
	Output        string

	// Timeout bounds the whole invocation. Zero waits forever.
	Timeout time.Duration
}

// Client runs requests against one camera and prints their results.
type Client struct {
	loop      *loop.Loop
	transport *transport.HTTP
	runner    *command.Runner
	printer   *Printer
	timeout   time.Duration
	logger    log.Logger
}

// NewClient builds a client writing results to out.
func (cfg *Config) NewClient(out io.Writer, topts ...transport.Option) (*Client, error) {
	printer, err := NewPrinter(out, cfg.Output, cfg.RenderOptions)
	if err != nil {
		return nil, err
	}

	l := loop.New()
	tr := transport.NewHTTP(cfg.OSCOptions.Host, l, topts...)
	return &Client{
		loop:      l,
		transport: tr,
		runner:    command.NewRunner(tr, l, command.WithInterval(cfg.OSCOptions.PollingInterval)),
		printer:   printer,
		timeout:   cfg.Timeout,
		logger:    log.WithName("ctl").WithValues("host", cfg.OSCOptions.Host),
	}, nil
}

// Run runs fn while the event loop is serving and stops the loop afterwards.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	loopCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		return c.loop.Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		return fn(gctx)
	})
	return g.Wait()
}

// Fetch issues a GET to path and prints the reply.
func (c *Client) Fetch(ctx context.Context, path string) error {
	rep, err := c.runner.AwaitFetch(ctx, path)
	if err != nil {
		return err
	}
	return c.print(rep)
}

// Execute runs a command and prints its terminal reply.
func (c *Client) Execute(ctx context.Context, name string, params map[string]any) error {
	rep, err := c.runner.Await(ctx, name, params)
	if err != nil {
		return err
	}
	return c.print(rep)
}

func (c *Client) print(rep command.Reply) error {
	if err := c.printer.Print(rep); err != nil {
		return err
	}
	if rep.Failed() {
		return fmt.Errorf("%w (status %d)", ErrNoResult, rep.StatusCode)
	}
	return nil
}

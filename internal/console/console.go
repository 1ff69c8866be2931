// Package console runs the OSC console: a web page and JSON API backed by
// one camera runner, optionally reachable over MQTT.
package console

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	consolehttp "github.com/autopeer-io/oscpeer/internal/console/server/http"
	"github.com/autopeer-io/oscpeer/internal/pkg/metrics"
	"github.com/autopeer-io/oscpeer/internal/pkg/server"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/mqtt"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
)

var (
	errLoopStopped      = errors.New("event loop is not running")
	errMQTTNotConnected = errors.New("mqtt client is not connected")
)

// Console owns the event loop and every server of the console binary.
type Console struct {
	loop     *loop.Loop
	running  atomic.Bool
	recorder *metrics.Recorder
	runners  *Runners
	service  *core.Service
	mqtt     mqtt.Client
	http     *consolehttp.Server
	manager  *server.Manager
}

// Run serves until ctx ends or a server fails.
func (c *Console) Run(ctx context.Context) error {
	defer log.Info("Console stopped")
	return c.manager.Start(ctx)
}

// Reload applies new camera settings. Commands already running finish
// against the previous camera.
func (c *Console) Reload(o *options.OSCOptions) error {
	return c.runners.Reload(o)
}

// Service returns the console's use cases.
func (c *Console) Service() *core.Service {
	return c.service
}

// Host returns the camera host in use.
func (c *Console) Host() string {
	return c.runners.Host()
}

func (c *Console) runLoop(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)
	return c.loop.Run(ctx)
}

func (c *Console) ready() error {
	if !c.running.Load() {
		return errLoopStopped
	}
	if c.mqtt != nil && !c.mqtt.IsConnected() {
		return errMQTTNotConnected
	}
	return nil
}

package simulator

import (
	"context"

	"github.com/autopeer-io/oscpeer/internal/pkg/server"
	"github.com/autopeer-io/oscpeer/pkg/options"
)

// Config holds what the simulator binary needs to run.
type Config struct {
	HttpOptions      *options.HttpOptions
	SimulatorOptions *options.SimulatorOptions
}

// Simulator serves a Camera over HTTP.
type Simulator struct {
	camera  *Camera
	manager *server.Manager
}

// NewSimulator builds the camera and its HTTP server.
func (cfg *Config) NewSimulator(hopts ...server.HTTPOption) *Simulator {
	cam := NewCamera(cfg.SimulatorOptions)
	httpSrv := server.NewHTTPServer("simulator", cfg.HttpOptions, cam.Handler(), hopts...)
	return &Simulator{
		camera:  cam,
		manager: server.NewManager(httpSrv),
	}
}

// Camera returns the simulated device.
func (s *Simulator) Camera() *Camera {
	return s.camera
}

// Run serves until ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	return s.manager.Start(ctx)
}

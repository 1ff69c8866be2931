// Package mqtt lets remote clients run camera commands over MQTT. Requests
// arrive on {root}/osc/execute/{command} and results leave on
// {root}/osc/result/{command}.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	"github.com/autopeer-io/oscpeer/pkg/log"
	pkgmqtt "github.com/autopeer-io/oscpeer/pkg/mqtt"
	"github.com/autopeer-io/oscpeer/pkg/mqtt/topic"
)

// Payloads of the retained online topic. OfflinePayload is also the will message.
const (
	OnlinePayload  = "true"
	OfflinePayload = "false"
)

const disconnectTimeout = 5 * time.Second

// Server implements the MQTT ingress of the console.
type Server struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
	svc    *core.Service
	id     string
	qos    int
	logger log.Logger

	// mu orders wg.Add against the final wg.Wait.
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewServer creates a server that identifies itself as id on the online topic.
func NewServer(client pkgmqtt.Client, topics *topic.TopicBuilder, svc *core.Service, id string, qos int) *Server {
	return &Server{
		client: client,
		topics: topics,
		svc:    svc,
		id:     id,
		qos:    qos,
		logger: log.WithName("console-mqtt"),
	}
}

// Start connects to the broker, announces the console and serves requests
// until ctx ends. Commands still running when ctx ends are waited for.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info("Disconnecting MQTT client")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		_ = s.client.Publish(shutdownCtx, s.topics.Online(s.id), s.qos, true, []byte(OfflinePayload))
		s.client.Disconnect(shutdownCtx)
	}()

	s.logger.Info("Waiting for MQTT connection")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	s.logger.Info("MQTT connected")

	if err := s.client.Publish(ctx, s.topics.Online(s.id), s.qos, true, []byte(OnlinePayload)); err != nil {
		return fmt.Errorf("failed to announce console: %w", err)
	}

	filter := s.topics.ExecuteWildcard()
	if err := s.client.Subscribe(ctx, filter, s.qos, s.handleExecute(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
	}

	<-ctx.Done()
	return nil
}

// handleExecute returns the handler for execute requests. The payload is the
// JSON parameter object, or empty for none. Each request runs on its own
// goroutine so the client's receive path never waits on the camera.
func (s *Server) handleExecute(ctx context.Context) pkgmqtt.MessageHandler {
	return func(_ context.Context, t string, payload []byte) {
		name, ok := s.topics.CommandName(t)
		if !ok {
			s.logger.Debug("Ignoring message on unexpected topic", "topic", t)
			return
		}

		params, err := decodeParameters(payload)
		if err != nil {
			if nerr := s.svc.Notify(ctx, name, core.Result{Error: err.Error()}); nerr != nil {
				s.logger.Error(nerr, "Failed to reject request", "command", name)
			}
			return
		}

		if !s.track() {
			s.logger.Debug("Dropping request received during shutdown", "command", name)
			return
		}
		go func() {
			defer s.wg.Done()
			if err := s.svc.ExecuteAndNotify(ctx, name, params); err != nil {
				s.logger.Error(err, "Remote command failed", "command", name)
			}
		}()
	}
}

// track registers a request goroutine unless the server is stopping.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func decodeParameters(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("parameters must be a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

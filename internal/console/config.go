package console

import (
	"fmt"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	"github.com/autopeer-io/oscpeer/internal/console/notifier"
	consolehttp "github.com/autopeer-io/oscpeer/internal/console/server/http"
	consolemqtt "github.com/autopeer-io/oscpeer/internal/console/server/mqtt"
	"github.com/autopeer-io/oscpeer/internal/pkg/metrics"
	"github.com/autopeer-io/oscpeer/internal/pkg/server"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/mqtt"
	"github.com/autopeer-io/oscpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/render"
)

// Config holds what the console binary needs to run.
type Config struct {
	OSCOptions    *options.OSCOptions
	HttpOptions   *options.HttpOptions
	MqttOptions   *options.MqttOptions
	RenderOptions *options.RenderOptions
}

// NewConsole wires the event loop, the camera runner and the front ends.
func (cfg *Config) NewConsole(hopts ...server.HTTPOption) (*Console, error) {
	c := &Console{
		loop:     loop.New(),
		recorder: metrics.NewRecorder(),
	}

	runners, err := NewRunners(c.loop, c.recorder, cfg.OSCOptions)
	if err != nil {
		return nil, err
	}
	c.runners = runners

	var mqttServer *consolemqtt.Server
	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		topics := topic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)
		clientCfg := cfg.MqttOptions.ToClientConfig()
		clientCfg.WillTopic = topics.Online(clientCfg.ClientID)
		clientCfg.WillPayload = []byte(consolemqtt.OfflinePayload)
		clientCfg.WillQoS = byte(cfg.MqttOptions.QoS)
		clientCfg.WillRetain = true

		client, err := mqtt.NewClient(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		c.mqtt = client
		c.service = core.New(runners, notifier.NewMQTTNotifier(client, topics, cfg.MqttOptions.QoS))
		mqttServer = consolemqtt.NewServer(client, topics, c.service, clientCfg.ClientID, cfg.MqttOptions.QoS)
	} else {
		c.service = core.New(runners, nil)
	}

	var ropts []render.Option
	if cfg.RenderOptions == nil || cfg.RenderOptions.Escape {
		ropts = append(ropts, render.WithEscaping())
	}

	c.http = consolehttp.NewServer(cfg.HttpOptions, consolehttp.Deps{
		Service:  c.service,
		Renderer: render.NewHTML(ropts...),
		Metrics:  c.recorder.Handler(),
		Ready:    c.ready,
		Host:     runners.Host,
	}, hopts...)

	c.manager = server.NewManager(server.ServerFunc(c.runLoop), c.http)
	if mqttServer != nil {
		c.manager.Add(mqttServer)
	}

	log.Info("Console configured", "host", runners.Host(), "addr", cfg.HttpOptions.Addr, "mqtt", mqttServer != nil)
	return c, nil
}

// Package notifier publishes command results to MQTT.
package notifier

import (
	"context"
	"encoding/json"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	pkgmqtt "github.com/autopeer-io/oscpeer/pkg/mqtt"
	"github.com/autopeer-io/oscpeer/pkg/mqtt/topic"
)

var _ core.ResultNotifier = (*MQTTNotifier)(nil)

// MQTTNotifier publishes each result to {root}/osc/result/{command}.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
	qos    int
}

// NewMQTTNotifier returns a notifier publishing through client, which the
// caller starts and stops.
func NewMQTTNotifier(client pkgmqtt.Client, topics *topic.TopicBuilder, qos int) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics, qos: qos}
}

func (n *MQTTNotifier) Notify(ctx context.Context, name string, res core.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.topics.Result(name), n.qos, false, payload)
}

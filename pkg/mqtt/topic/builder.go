package topic

import (
	"fmt"
	"strings"
)

// Topic segments of the camera bridge. Changing them breaks every client
// that publishes commands through the bridge.
const (
	// SuffixExecute carries command requests (client -> bridge). The last
	// level is the command name and the payload its parameters.
	// Structure: {root}/osc/execute/{command}
	SuffixExecute = "osc/execute"

	// SuffixResult carries terminal replies (bridge -> client).
	// Structure: {root}/osc/result/{command}
	SuffixResult = "osc/result"

	// SuffixOnline carries the retained availability of a bridge instance.
	// Structure: {root}/osc/online/{bridgeID}
	SuffixOnline = "osc/online"
)

// TopicBuilder constructs the bridge's topic strings under one root.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g. "oscpeer/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.TrimSuffix(root, "/")}
}

// Execute returns the topic a client publishes a command request on.
func (b *TopicBuilder) Execute(command string) string {
	return b.build(SuffixExecute, command)
}

// ExecuteWildcard returns the filter the bridge subscribes to.
// Result: {root}/osc/execute/+
func (b *TopicBuilder) ExecuteWildcard() string {
	return b.build(SuffixExecute, Wildcard)
}

// Result returns the topic the terminal reply of command is published on.
func (b *TopicBuilder) Result(command string) string {
	return b.build(SuffixResult, command)
}

// Online returns the availability topic of a bridge instance.
func (b *TopicBuilder) Online(bridgeID string) string {
	return b.build(SuffixOnline, bridgeID)
}

// CommandName extracts the command name from an execute topic.
func (b *TopicBuilder) CommandName(topic string) (string, bool) {
	prefix := b.root + "/" + SuffixExecute + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(topic, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// build is a private helper to construct the final topic string.
// Pattern: {root}/{suffix}/{identifier}
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}

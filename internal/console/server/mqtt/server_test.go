package mqtt

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	"github.com/autopeer-io/oscpeer/internal/console/notifier"
	"github.com/autopeer-io/oscpeer/internal/simulator"
	"github.com/autopeer-io/oscpeer/pkg/mqtt"
	"github.com/autopeer-io/oscpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
)

type message struct {
	topic   string
	retain  bool
	payload string
}

type fakeClient struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler

	subscribed   chan struct{}
	published    chan message
	disconnected chan struct{}
}

var _ mqtt.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		handlers:     map[string]mqtt.MessageHandler{},
		subscribed:   make(chan struct{}, 1),
		published:    make(chan message, 16),
		disconnected: make(chan struct{}),
	}
}

func (f *fakeClient) Start(context.Context) error           { return nil }
func (f *fakeClient) AwaitConnection(context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool                     { return true }
func (f *fakeClient) Disconnect(context.Context)            { close(f.disconnected) }

func (f *fakeClient) Publish(_ context.Context, t string, _ int, retain bool, payload []byte) error {
	f.published <- message{topic: t, retain: retain, payload: string(payload)}
	return nil
}

func (f *fakeClient) Subscribe(_ context.Context, t string, _ int, h mqtt.MessageHandler) error {
	f.mu.Lock()
	f.handlers[t] = h
	f.mu.Unlock()
	f.subscribed <- struct{}{}
	return nil
}

func (f *fakeClient) Unsubscribe(_ context.Context, t string) error {
	f.mu.Lock()
	delete(f.handlers, t)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) deliver(filter, t string, payload []byte) {
	f.mu.Lock()
	h := f.handlers[filter]
	f.mu.Unlock()
	h(context.Background(), t, payload)
}

type staticRunner struct{ r *command.Runner }

func (s staticRunner) Runner() *command.Runner { return s.r }

func receive(t *testing.T, ch <-chan message) message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a publish")
		return message{}
	}
}

func TestServer(t *testing.T) {
	camera := httptest.NewServer(simulator.NewCamera(options.NewSimulatorOptions()).Handler())
	defer camera.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := loop.New()
	go func() { _ = l.Run(ctx) }()

	tr := transport.NewHTTP(camera.URL, l, transport.WithHTTPClient(camera.Client()))
	runner := command.NewRunner(tr, l, command.WithInterval(5*time.Millisecond))

	client := newFakeClient()
	topics := topic.NewTopicBuilder("oscpeer/v1")
	svc := core.New(staticRunner{runner}, notifier.NewMQTTNotifier(client, topics, 1))
	srv := NewServer(client, topics, svc, "console-1", 1)

	srvCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Start(srvCtx) }()

	online := receive(t, client.published)
	if online.topic != topics.Online("console-1") || !online.retain || online.payload != OnlinePayload {
		t.Errorf("online announcement = %+v", online)
	}
	<-client.subscribed

	testCases := []struct {
		name       string
		command    string
		payload    string
		wantStatus int
		wantError  bool
	}{
		{name: "command with parameters", command: "camera.getOptions", payload: `{"optionNames":["iso"]}`, wantStatus: 200},
		{name: "command without parameters", command: "camera.reset", wantStatus: 200},
		{name: "rejected by camera", command: "camera.unknown", wantStatus: 400},
		{name: "invalid parameters", command: "camera.getOptions", payload: `nope`, wantError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client.deliver(topics.ExecuteWildcard(), topics.Execute(tc.command), []byte(tc.payload))

			got := receive(t, client.published)
			if got.topic != topics.Result(tc.command) {
				t.Errorf("topic = %q", got.topic)
			}
			var res struct {
				Status int    `json:"status"`
				Error  string `json:"error"`
			}
			if err := json.Unmarshal([]byte(got.payload), &res); err != nil {
				t.Fatalf("decode %q: %v", got.payload, err)
			}
			if res.Status != tc.wantStatus {
				t.Errorf("status = %d, want %d", res.Status, tc.wantStatus)
			}
			if (res.Error != "") != tc.wantError {
				t.Errorf("error = %q", res.Error)
			}
		})
	}

	stop()
	if err := <-done; err != nil {
		t.Errorf("Start() = %v", err)
	}
	offline := receive(t, client.published)
	if offline.payload != OfflinePayload || !offline.retain {
		t.Errorf("offline announcement = %+v", offline)
	}
	<-client.disconnected

	client.deliver(topics.ExecuteWildcard(), topics.Execute("camera.reset"), nil)
	select {
	case m := <-client.published:
		t.Errorf("request after shutdown was served: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDecodeParameters(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", payload: "", wantNil: true},
		{name: "object", payload: `{"a":1}`},
		{name: "null", payload: `null`},
		{name: "array", payload: `[1]`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params, err := decodeParameters([]byte(tc.payload))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tc.wantErr {
				return
			}
			if (params == nil) != tc.wantNil {
				t.Errorf("params = %v", params)
			}
		})
	}
}

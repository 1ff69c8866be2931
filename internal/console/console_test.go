package console

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autopeer-io/oscpeer/internal/pkg/server"
	"github.com/autopeer-io/oscpeer/internal/simulator"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
)

func newCamera(t *testing.T, model string) *httptest.Server {
	t.Helper()
	opts := options.NewSimulatorOptions()
	opts.Model = model
	opts.Steps = 1
	srv := httptest.NewServer(simulator.NewCamera(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestConsole(t *testing.T) {
	first := newCamera(t, "first-cam")
	second := newCamera(t, "second-cam")

	oscOpts := options.NewOSCOptions()
	oscOpts.Host = first.URL
	oscOpts.PollingInterval = 5 * time.Millisecond
	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = "127.0.0.1:0"

	cfg := &Config{
		OSCOptions:    oscOpts,
		HttpOptions:   httpOpts,
		MqttOptions:   options.NewMqttOptions(),
		RenderOptions: options.NewRenderOptions(),
	}
	ready := make(chan net.Addr, 1)
	c, err := cfg.NewConsole(server.WithReady(ready))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	var base string
	select {
	case addr := <-ready:
		base = "http://" + addr.String()
	case <-time.After(10 * time.Second):
		t.Fatal("console did not start listening")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		status, _ := get(t, base+"/readyz")
		if status == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("readyz = %d", status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, body := get(t, base+"/api/info"); !strings.Contains(body, "first-cam") {
		t.Errorf("info before reload = %s", body)
	}
	if _, body := get(t, base+"/"); !strings.Contains(body, first.URL) {
		t.Errorf("page does not show the camera host")
	}

	reloaded := *oscOpts
	reloaded.Host = second.URL
	if err := c.Reload(&reloaded); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if c.Host() != second.URL {
		t.Errorf("Host() = %q", c.Host())
	}
	if _, body := get(t, base+"/api/info"); !strings.Contains(body, "second-cam") {
		t.Errorf("info after reload = %s", body)
	}
	req, _ := http.NewRequest(http.MethodPost, base+"/api/commands/camera.reset", nil)
	req.Header.Set(osc.HeaderXSRFProtected, osc.XSRFProtectedValue)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST reset: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST reset = %d", resp.StatusCode)
	}
	if _, body := get(t, base+"/metrics"); !strings.Contains(body, "oscpeer_commands_finished_total") {
		t.Errorf("metrics do not count finished requests")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

func TestConsoleStopsWithCommandInFlight(t *testing.T) {
	polled := make(chan struct{}, 1)
	camera := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == osc.CommandStatusPath {
			select {
			case polled <- struct{}{}:
			default:
			}
		}
		w.Header().Set(osc.HeaderContentType, osc.MediaTypeJSON)
		_, _ = io.WriteString(w, `{"state":"inProgress","id":"1"}`)
	}))
	defer camera.Close()

	oscOpts := options.NewOSCOptions()
	oscOpts.Host = camera.URL
	oscOpts.PollingInterval = 5 * time.Millisecond
	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = "127.0.0.1:0"
	httpOpts.ShutdownTimeout = time.Minute

	cfg := &Config{OSCOptions: oscOpts, HttpOptions: httpOpts, RenderOptions: options.NewRenderOptions()}
	ready := make(chan net.Addr, 1)
	c, err := cfg.NewConsole(server.WithReady(ready))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	addr := <-ready

	replied := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, "http://"+addr.String()+"/api/commands/"+osc.CommandTakePicture, nil)
		req.Header.Set(osc.HeaderXSRFProtected, osc.XSRFProtectedValue)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			replied <- 0
			return
		}
		_ = resp.Body.Close()
		replied <- resp.StatusCode
	}()

	select {
	case <-polled:
	case <-time.After(10 * time.Second):
		t.Fatal("the command never reached the polling stage")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("console waited for the running command")
	}
	if status := <-replied; status != 0 && status != http.StatusServiceUnavailable {
		t.Errorf("in-flight request status = %d", status)
	}
}

func TestRunnersReload(t *testing.T) {
	o := options.NewOSCOptions()
	o.Host = "http://127.0.0.1:9"
	rs, err := NewRunners(loop.NewManual(), nil, o)
	if err != nil {
		t.Fatalf("NewRunners: %v", err)
	}
	first := rs.Runner()

	testCases := []struct {
		name       string
		mutate     func(o *options.OSCOptions)
		wantErr    bool
		wantSwitch bool
	}{
		{name: "unchanged", mutate: func(*options.OSCOptions) {}},
		{name: "invalid host", mutate: func(o *options.OSCOptions) { o.Host = "ftp://camera" }, wantErr: true},
		{name: "invalid interval", mutate: func(o *options.OSCOptions) { o.PollingInterval = 0 }, wantErr: true},
		{name: "new interval", mutate: func(o *options.OSCOptions) { o.PollingInterval = 2 * time.Second }, wantSwitch: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := *o
			tc.mutate(&next)
			err := rs.Reload(&next)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Reload() = %v, wantErr %v", err, tc.wantErr)
			}
			if switched := rs.Runner() != first; switched != tc.wantSwitch {
				t.Errorf("runner replaced = %v, want %v", switched, tc.wantSwitch)
			}
		})
	}
}

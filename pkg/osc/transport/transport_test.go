package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

type outcome struct {
	status int
	body   value.Value
}

func startLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = l.Run(ctx) }()
	return l
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("completion was never invoked")
		return outcome{}
	}
}

func TestRequestHeadersAndBody(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(osc.HeaderAccept) != osc.MediaTypeJSON {
			t.Errorf("Accept = %q", r.Header.Get(osc.HeaderAccept))
		}
		if r.Header.Get(osc.HeaderXSRFProtected) != "1" {
			t.Errorf("X-XSRF-Protected = %q", r.Header.Get(osc.HeaderXSRFProtected))
		}
		if r.Method != http.MethodPost || r.URL.Path != osc.CommandExecutePath {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get(osc.HeaderContentType); ct != osc.ContentTypeJSON {
			t.Errorf("Content-Type = %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("body is not JSON: %s", data)
		}
		w.Write([]byte(`{"name":"camera.takePicture","state":"inProgress","id":"42"}`))
	}))
	defer srv.Close()

	tr := NewHTTP(srv.URL+"/", startLoop(t))
	ch := make(chan outcome, 1)
	Post(context.Background(), tr, osc.CommandExecutePath, map[string]any{"name": "camera.takePicture"},
		func(status int, body value.Value) { ch <- outcome{status, body} })

	o := await(t, ch)
	if o.status != http.StatusOK {
		t.Fatalf("status = %d", o.status)
	}
	if id, _ := value.LookupString(o.body, "id"); id != "42" {
		t.Errorf("id = %q", id)
	}
	if gotBody["name"] != "camera.takePicture" {
		t.Errorf("server saw body %v", gotBody)
	}
}

func TestRequestFailuresReportNilBody(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name:       "server error without body",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "error status with JSON body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"state":"error"}`))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty success body",
			handler:    func(w http.ResponseWriter, r *http.Request) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "null document",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(" null\n")) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "unparseable body",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html></html>")) },
			wantStatus: http.StatusOK,
		},
	}

	l := startLoop(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ch := make(chan outcome, 1)
			Get(context.Background(), NewHTTP(srv.URL, l), osc.InfoPath,
				func(status int, body value.Value) { ch <- outcome{status, body} })

			o := await(t, ch)
			if o.status != tt.wantStatus {
				t.Errorf("status = %d, want %d", o.status, tt.wantStatus)
			}
			if o.body != nil {
				t.Errorf("body = %v, want nil", o.body)
			}
		})
	}
}

func TestRequestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ch := make(chan outcome, 1)
	Get(context.Background(), NewHTTP(url, startLoop(t)), osc.StatePath,
		func(status int, body value.Value) { ch <- outcome{status, body} })

	o := await(t, ch)
	if o.status != StatusNetworkError || o.body != nil {
		t.Fatalf("got (%d, %v), want (0, nil)", o.status, o.body)
	}
}

func TestRequestUnencodableBody(t *testing.T) {
	ch := make(chan outcome, 1)
	Post(context.Background(), NewHTTP("http://127.0.0.1:1", startLoop(t)), osc.CommandExecutePath,
		map[string]any{"bad": make(chan int)},
		func(status int, body value.Value) { ch <- outcome{status, body} })

	o := await(t, ch)
	if o.status != StatusNetworkError || o.body != nil {
		t.Fatalf("got (%d, %v), want (0, nil)", o.status, o.body)
	}
}

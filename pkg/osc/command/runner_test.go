package command

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

type response struct {
	status int
	body   value.Value
}

type sent struct {
	method string
	path   string
	body   string
}

// fakeTransport answers requests from a script, delivering each completion
// through the scheduler the way the HTTP transport does.
type fakeTransport struct {
	sched loop.Scheduler

	mu          sync.Mutex
	script      []response
	sent        []sent
	inFlight    int
	maxInFlight int
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFakeTransport(sched loop.Scheduler, script ...response) *fakeTransport {
	return &fakeTransport{sched: sched, script: script}
}

func (f *fakeTransport) Request(_ context.Context, method, path string, body any, done transport.Completion) {
	f.mu.Lock()
	s := sent{method: method, path: path}
	if body != nil {
		data, _ := json.Marshal(body)
		s.body = string(data)
	}
	f.sent = append(f.sent, s)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	resp := response{status: transport.StatusNetworkError}
	if len(f.script) > 0 {
		resp = f.script[0]
		f.script = f.script[1:]
	}
	f.mu.Unlock()

	f.sched.Post(func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
		done(resp.status, resp.body)
	})
}

func (f *fakeTransport) requests() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type recorder struct {
	replies []Reply
}

func (r *recorder) callback(rep Reply) { r.replies = append(r.replies, rep) }

func (r *recorder) finals() []Reply {
	var out []Reply
	for _, rep := range r.replies {
		if !rep.Pending {
			out = append(out, rep)
		}
	}
	return out
}

func parse(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return v
}

func encode(t *testing.T, v value.Value) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(data)
}

func TestRequestMarshal(t *testing.T) {
	testCases := []struct {
		name string
		req  Request
		want string
	}{
		{name: "nil parameters are omitted", req: Request{Name: osc.CommandTakePicture}, want: `{"name":"camera.takePicture"}`},
		{name: "empty parameters are kept", req: Request{Name: "x", Parameters: map[string]any{}}, want: `{"name":"x","parameters":{}}`},
		{name: "parameters", req: Request{Name: "x", Parameters: map[string]any{"a": 1}}, want: `{"name":"x","parameters":{"a":1}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.req)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("got %s, want %s", data, tc.want)
			}
		})
	}
}

func TestTakePictureChain(t *testing.T) {
	m := loop.NewManual()
	ft := newFakeTransport(m,
		response{200, parse(t, `{"name":"camera.takePicture","state":"inProgress","id":"123"}`)},
		response{200, parse(t, `{"name":"camera.takePicture","state":"done","results":{"fileUri":"file:///img/1.jpg"}}`)},
	)
	r := NewRunner(ft, m, WithInterval(time.Second), WithClock(m))

	rec := &recorder{}
	r.Execute(context.Background(), osc.CommandTakePicture, nil, rec.callback)

	if len(rec.replies) != 1 || !rec.replies[0].Pending {
		t.Fatalf("expected a single pending reply before any response, got %+v", rec.replies)
	}

	m.Drain()
	if got := len(ft.requests()); got != 1 {
		t.Fatalf("expected only the execute request, got %d", got)
	}
	if len(rec.finals()) != 0 {
		t.Fatal("inProgress must not deliver a final reply")
	}

	m.Step(time.Second - time.Millisecond)
	if got := len(ft.requests()); got != 1 {
		t.Fatalf("poll issued before the interval elapsed")
	}

	m.Step(time.Millisecond)
	reqs := ft.requests()
	if len(reqs) != 2 {
		t.Fatalf("expected one status poll, got %d requests", len(reqs))
	}
	if reqs[0].path != osc.CommandExecutePath || reqs[0].body != `{"name":"camera.takePicture"}` {
		t.Errorf("execute request = %+v", reqs[0])
	}
	if reqs[1].path != osc.CommandStatusPath || reqs[1].body != `{"id":"123"}` {
		t.Errorf("status request = %+v", reqs[1])
	}

	finals := rec.finals()
	if len(finals) != 1 {
		t.Fatalf("expected exactly one final reply, got %d", len(finals))
	}
	if finals[0].StatusCode != 200 || finals[0].State() != osc.StateDone {
		t.Errorf("final reply = %d %q", finals[0].StatusCode, finals[0].State())
	}
	if got := encode(t, finals[0].Results()); got != `{"fileUri":"file:///img/1.jpg"}` {
		t.Errorf("Results() = %s", got)
	}
	if m.Timers() != 0 {
		t.Error("terminal chain left a timer behind")
	}
}

func TestPollsAreSequential(t *testing.T) {
	const inProgress = 5

	m := loop.NewManual()
	var script []response
	for i := 0; i <= inProgress; i++ {
		script = append(script, response{200, parse(t, `{"state":"inProgress","id":"h"}`)})
	}
	script = append(script, response{200, parse(t, `{"state":"done"}`)})
	ft := newFakeTransport(m, script...)
	r := NewRunner(ft, m, WithInterval(250*time.Millisecond), WithClock(m))

	rec := &recorder{}
	r.Execute(context.Background(), "camera.longRunning", map[string]any{}, rec.callback)
	for m.Next() {
	}

	reqs := ft.requests()
	if len(reqs) != inProgress+2 {
		t.Fatalf("expected %d requests, got %d", inProgress+2, len(reqs))
	}
	if reqs[0].body != `{"name":"camera.longRunning","parameters":{}}` {
		t.Errorf("execute body = %s", reqs[0].body)
	}
	for i, req := range reqs[1:] {
		if req.path != osc.CommandStatusPath || req.body != `{"id":"h"}` {
			t.Errorf("poll %d = %+v", i+1, req)
		}
	}
	if ft.maxInFlight != 1 {
		t.Errorf("expected at most one request in flight, got %d", ft.maxInFlight)
	}
	if len(rec.replies) != 2 || len(rec.finals()) != 1 {
		t.Errorf("expected pending plus one final reply, got %+v", rec.replies)
	}
	if want := time.Unix(0, 0).Add(time.Duration(inProgress+1) * 250 * time.Millisecond); !m.Now().Equal(want) {
		t.Errorf("clock = %v, want %v", m.Now(), want)
	}
}

func TestTerminalResponses(t *testing.T) {
	testCases := []struct {
		name       string
		script     []response
		wantStatus int
		wantBody   string
		wantSent   int
	}{
		{
			name:       "immediate done",
			script:     []response{{200, parse(t, `{"state":"done","results":{}}`)}},
			wantStatus: 200,
			wantBody:   `{"state":"done","results":{}}`,
			wantSent:   1,
		},
		{
			name:       "camera error",
			script:     []response{{200, parse(t, `{"state":"error","error":{"code":"unknownCommand"}}`)}},
			wantStatus: 200,
			wantBody:   `{"state":"error","error":{"code":"unknownCommand"}}`,
			wantSent:   1,
		},
		{
			name:       "server error without a body",
			script:     []response{{500, nil}},
			wantStatus: 500,
			wantSent:   1,
		},
		{
			name:     "network failure",
			script:   nil,
			wantSent: 1,
		},
		{
			name:       "body without state",
			script:     []response{{200, parse(t, `[1,2]`)}},
			wantStatus: 200,
			wantBody:   `[1,2]`,
			wantSent:   1,
		},
		{
			name: "poll fails",
			script: []response{
				{200, parse(t, `{"state":"inProgress","id":7}`)},
				{503, nil},
			},
			wantStatus: 503,
			wantSent:   2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := loop.NewManual()
			ft := newFakeTransport(m, tc.script...)
			r := NewRunner(ft, m, WithClock(m))

			rec := &recorder{}
			r.Execute(context.Background(), "x", nil, rec.callback)
			for m.Next() {
			}

			finals := rec.finals()
			if len(finals) != 1 {
				t.Fatalf("expected exactly one final reply, got %d", len(finals))
			}
			if finals[0].StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", finals[0].StatusCode, tc.wantStatus)
			}
			if tc.wantBody == "" {
				if !finals[0].Failed() {
					t.Errorf("expected no body, got %s", encode(t, finals[0].Body))
				}
			} else if got := encode(t, finals[0].Body); got != tc.wantBody {
				t.Errorf("body = %s, want %s", got, tc.wantBody)
			}
			if got := len(ft.requests()); got != tc.wantSent {
				t.Errorf("sent %d requests, want %d", got, tc.wantSent)
			}
		})
	}
}

func TestPollHandle(t *testing.T) {
	testCases := []struct {
		name     string
		script   []string
		wantPoll []string
	}{
		{
			name:     "numeric id",
			script:   []string{`{"state":"inProgress","id":42}`, `{"state":"done"}`},
			wantPoll: []string{`{"id":42}`},
		},
		{
			name:     "missing id",
			script:   []string{`{"state":"inProgress"}`, `{"state":"done"}`},
			wantPoll: []string{`{}`},
		},
		{
			name: "later id is ignored",
			script: []string{
				`{"state":"inProgress","id":"a"}`,
				`{"state":"inProgress","id":"b"}`,
				`{"state":"done"}`,
			},
			wantPoll: []string{`{"id":"a"}`, `{"id":"a"}`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := loop.NewManual()
			var script []response
			for _, s := range tc.script {
				script = append(script, response{200, parse(t, s)})
			}
			ft := newFakeTransport(m, script...)
			r := NewRunner(ft, m, WithClock(m))

			r.Execute(context.Background(), "x", nil, func(Reply) {})
			for m.Next() {
			}

			reqs := ft.requests()[1:]
			if len(reqs) != len(tc.wantPoll) {
				t.Fatalf("expected %d polls, got %d", len(tc.wantPoll), len(reqs))
			}
			for i, want := range tc.wantPoll {
				if reqs[i].body != want {
					t.Errorf("poll %d body = %s, want %s", i, reqs[i].body, want)
				}
			}
		})
	}
}

func TestConcurrentChainsAreIndependent(t *testing.T) {
	m := loop.NewManual()
	ft := newFakeTransport(m,
		response{200, parse(t, `{"state":"inProgress","id":"first"}`)},
		response{200, parse(t, `{"state":"done","results":{"n":1}}`)},
		response{200, parse(t, `{"state":"done","results":{"n":2}}`)},
	)
	r := NewRunner(ft, m, WithClock(m))

	first, second := &recorder{}, &recorder{}
	r.Execute(context.Background(), "a", nil, first.callback)
	r.Execute(context.Background(), "b", nil, second.callback)
	for m.Next() {
	}

	if len(first.finals()) != 1 || len(second.finals()) != 1 {
		t.Fatalf("each chain must finish once: %d, %d", len(first.finals()), len(second.finals()))
	}
	if got := encode(t, second.finals()[0].Results()); got != `{"n":1}` {
		t.Errorf("second chain results = %s", got)
	}
	if got := encode(t, first.finals()[0].Results()); got != `{"n":2}` {
		t.Errorf("first chain results = %s", got)
	}
	if len(first.replies) != 2 || !first.replies[0].Pending {
		t.Errorf("first chain replies = %+v", first.replies)
	}
	reqs := ft.requests()
	if len(reqs) != 3 || reqs[2].body != `{"id":"first"}` {
		t.Errorf("unexpected request sequence %+v", reqs)
	}
}

type countingObserver struct {
	started, polls, finished int
	state                    string
	status                   int
	elapsed                  time.Duration
}

func (o *countingObserver) CommandStarted(string) { o.started++ }
func (o *countingObserver) PollIssued(string)     { o.polls++ }
func (o *countingObserver) CommandFinished(_, state string, status int, elapsed time.Duration) {
	o.finished++
	o.state, o.status, o.elapsed = state, status, elapsed
}

func TestObserver(t *testing.T) {
	m := loop.NewManual()
	ft := newFakeTransport(m,
		response{200, parse(t, `{"state":"inProgress","id":"1"}`)},
		response{200, parse(t, `{"state":"inProgress","id":"1"}`)},
		response{200, parse(t, `{"state":"done"}`)},
	)
	obs := &countingObserver{}
	r := NewRunner(ft, m, WithClock(m), WithObserver(obs), WithInterval(2*time.Second))

	r.Execute(context.Background(), "x", nil, func(Reply) {})
	for m.Next() {
	}

	if obs.started != 1 || obs.polls != 2 || obs.finished != 1 {
		t.Errorf("started=%d polls=%d finished=%d", obs.started, obs.polls, obs.finished)
	}
	if obs.state != osc.StateDone || obs.status != 200 {
		t.Errorf("finished with %q %d", obs.state, obs.status)
	}
	if obs.elapsed != 4*time.Second {
		t.Errorf("elapsed = %v", obs.elapsed)
	}
}

func TestFetch(t *testing.T) {
	m := loop.NewManual()
	ft := newFakeTransport(m, response{200, parse(t, `{"manufacturer":"Acme","model":"X1"}`)})
	r := NewRunner(ft, m)

	rec := &recorder{}
	r.Info(context.Background(), rec.callback)
	if len(rec.replies) != 1 || !rec.replies[0].Pending {
		t.Fatalf("expected a pending reply first, got %+v", rec.replies)
	}
	m.Drain()

	reqs := ft.requests()
	if len(reqs) != 1 || reqs[0].method != "GET" || reqs[0].path != osc.InfoPath || reqs[0].body != "" {
		t.Errorf("unexpected request %+v", reqs)
	}
	finals := rec.finals()
	if len(finals) != 1 || encode(t, finals[0].Body) != `{"manufacturer":"Acme","model":"X1"}` {
		t.Errorf("final reply = %+v", finals)
	}
}

func TestAwait(t *testing.T) {
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	ft := newFakeTransport(l,
		response{200, parse(t, `{"state":"inProgress","id":"z"}`)},
		response{200, parse(t, `{"state":"done","results":{"ok":true}}`)},
	)
	r := NewRunner(ft, l, WithInterval(10*time.Millisecond))

	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	defer reqCancel()
	rep, err := r.Await(reqCtx, "x", nil)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if rep.Pending || rep.State() != osc.StateDone {
		t.Errorf("unexpected reply %+v", rep)
	}
	if got := encode(t, rep.Results()); got != `{"ok":true}` {
		t.Errorf("Results() = %s", got)
	}

	rep, err = r.AwaitFetch(reqCtx, osc.StatePath)
	if err != nil {
		t.Fatalf("AwaitFetch: %v", err)
	}
	if rep.StatusCode != transport.StatusNetworkError || !rep.Failed() {
		t.Errorf("expected a network failure once the script is exhausted, got %+v", rep)
	}
}

func TestAwaitContextDone(t *testing.T) {
	m := loop.NewManual()
	r := NewRunner(newFakeTransport(m), m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Await(ctx, "x", nil); err == nil {
		t.Fatal("expected an error once the context is done")
	}
}

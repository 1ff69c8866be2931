package command

import (
	"encoding/json"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// Request is the body of an execute call.
type Request struct {
	Name string

	// Parameters is omitted from the body only when nil; an empty map is
	// sent as {}.
	Parameters map[string]any
}

// MarshalJSON encodes the request as {"name": ..., "parameters": ...}.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.Parameters == nil {
		return json.Marshal(struct {
			Name string `json:"name"`
		}{r.Name})
	}
	return json.Marshal(struct {
		Name       string         `json:"name"`
		Parameters map[string]any `json:"parameters"`
	}{r.Name, r.Parameters})
}

// Reply is one notification delivered to a Callback.
type Reply struct {
	// Pending marks the notification sent when a request is initiated,
	// before any response. StatusCode and Body are zero.
	Pending bool

	// StatusCode is the HTTP status of the final response, 0 when the
	// camera could not be reached.
	StatusCode int

	// Body is the final response body, nil when absent, not 2xx or not JSON.
	Body value.Value
}

// State returns the "state" member of the body, if any.
func (r Reply) State() string {
	s, _ := value.LookupString(r.Body, osc.FieldState)
	return s
}

// Results returns the "results" member when present, else the whole body.
func (r Reply) Results() value.Value {
	if res, ok := value.Lookup(r.Body, osc.FieldResults); ok {
		return res
	}
	return r.Body
}

// Failed reports whether the transport delivered no body.
func (r Reply) Failed() bool {
	return !r.Pending && r.Body == nil
}

// Callback receives the notifications of one request: first a Pending
// reply, then exactly one final reply.
type Callback func(Reply)

// statusRequest builds the body of a status poll. A missing handle yields {}.
func statusRequest(handle value.Value) *value.Mapping {
	if handle == nil {
		return value.NewMapping()
	}
	return value.NewMapping(value.Member{Key: osc.FieldID, Value: handle})
}

func isInProgress(body value.Value) bool {
	state, ok := value.LookupString(body, osc.FieldState)
	return ok && state == osc.StateInProgress
}

func sameHandle(a, b value.Value) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

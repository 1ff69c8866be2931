// Package simulator implements a fake OSC camera: enough of the HTTP API to
// exercise command polling, option probing and the console without hardware.
package simulator

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc"
)

// defaultOptions are the options the simulated camera supports, with their
// values after a reset.
func defaultOptions() map[string]any {
	return map[string]any{
		"captureMode":                 "image",
		"captureModeSupport":          []string{"image", "interval"},
		"exposureProgram":             2,
		"exposureProgramSupport":      []int{1, 2, 4, 9},
		"iso":                         0,
		"isoSupport":                  []int{0, 100, 200, 400, 800, 1600},
		"whiteBalance":                "auto",
		"whiteBalanceSupport":         []string{"auto", "daylight", "shade", "cloudy-daylight", "incandescent"},
		"exposureCompensation":        0,
		"exposureCompensationSupport": []float64{-2, -1, 0, 1, 2},
		"fileFormat":                  map[string]any{"type": "jpeg", "width": 5376, "height": 2688},
		"dateTimeZone":                "2021:01:01 00:00:00+00:00",
		"sleepDelay":                  180,
		"offDelay":                    600,
		"totalSpace":                  32 << 30,
		"remainingSpace":              30 << 30,
		"remainingPictures":           4000,
		"clientVersion":               2,
	}
}

// readOnlyOptions cannot be changed with camera.setOptions.
var readOnlyOptions = map[string]bool{
	"captureModeSupport":          true,
	"exposureProgramSupport":      true,
	"isoSupport":                  true,
	"whiteBalanceSupport":         true,
	"exposureCompensationSupport": true,
	"totalSpace":                  true,
	"remainingSpace":              true,
	"remainingPictures":           true,
}

// Camera is the simulated device. It is safe for concurrent use.
type Camera struct {
	opts    *options.SimulatorOptions
	clock   clock.PassiveClock
	logger  log.Logger
	started time.Time

	mu          sync.Mutex
	seq         int
	fingerprint int
	captures    map[string]*capture
	values      map[string]any
	files       []fileEntry
}

// capture is a camera.takePicture in progress.
type capture struct {
	remaining int
	file      fileEntry
}

type fileEntry struct {
	Name      string `json:"name"`
	FileURL   string `json:"fileUrl"`
	Size      int    `json:"size"`
	DateTimeZ string `json:"dateTimeZ"`
}

// Option configures a Camera.
type Option func(*Camera)

// WithClock sets the clock used for uptime and file timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(cam *Camera) {
		cam.clock = c
	}
}

// NewCamera returns a camera configured by opts.
func NewCamera(opts *options.SimulatorOptions, copts ...Option) *Camera {
	c := &Camera{
		opts:     opts,
		clock:    clock.RealClock{},
		logger:   log.WithName("simulator"),
		captures: map[string]*capture{},
		values:   defaultOptions(),
	}
	for _, opt := range copts {
		opt(c)
	}
	c.started = c.clock.Now()
	return c
}

// Files returns the names of the stored pictures.
func (c *Camera) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.Name
	}
	return names
}

type commandRequest struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type statusRequest struct {
	ID json.RawMessage `json:"id"`
}

type commandResponse struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	ID       string        `json:"id,omitempty"`
	Results  any           `json:"results,omitempty"`
	Error    *commandError `json:"error,omitempty"`
	Progress *progress     `json:"progress,omitempty"`
}

type commandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type progress struct {
	Completion float64 `json:"completion"`
}

func failure(name, code, format string, args ...any) (int, commandResponse) {
	return http.StatusBadRequest, commandResponse{
		Name:  name,
		State: osc.StateError,
		Error: &commandError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

func done(name string, results any) (int, commandResponse) {
	return http.StatusOK, commandResponse{Name: name, State: osc.StateDone, Results: results}
}

// execute runs one command. baseURL prefixes the URLs of new files.
func (c *Camera) execute(req commandRequest, baseURL string) (int, commandResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch req.Name {
	case osc.CommandTakePicture:
		return c.takePicture(baseURL)
	case osc.CommandGetOptions:
		return c.getOptions(req)
	case osc.CommandSetOptions:
		return c.setOptions(req)
	case osc.CommandListFiles:
		return c.listFiles(req)
	case osc.CommandDelete:
		return c.deleteFiles(req)
	case osc.CommandReset:
		c.values = defaultOptions()
		c.fingerprint++
		return done(req.Name, nil)
	default:
		return failure(req.Name, osc.ErrorUnknownCommand, "command %q is not supported", req.Name)
	}
}

func (c *Camera) takePicture(baseURL string) (int, commandResponse) {
	c.seq++
	id := strconv.Itoa(c.seq)
	name := fmt.Sprintf("IMG_%04d.JPG", c.seq)
	f := fileEntry{
		Name:      name,
		FileURL:   baseURL + "/files/" + name,
		Size:      len(pictureData),
		DateTimeZ: c.clock.Now().UTC().Format("2006:01:02 15:04:05-07:00"),
	}

	if c.opts.Steps == 0 {
		return c.storePicture(f)
	}
	c.captures[id] = &capture{remaining: c.opts.Steps, file: f}
	return http.StatusOK, commandResponse{
		Name:     osc.CommandTakePicture,
		State:    osc.StateInProgress,
		ID:       id,
		Progress: &progress{Completion: 0},
	}
}

func (c *Camera) storePicture(f fileEntry) (int, commandResponse) {
	c.files = append(c.files, f)
	c.fingerprint++
	return done(osc.CommandTakePicture, map[string]any{"fileUrl": f.FileURL})
}

// status advances the capture identified by raw by one poll.
func (c *Camera) status(raw json.RawMessage) (int, commandResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		// Handles are issued as strings, but accept a bare number too.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return failure("", osc.ErrorInvalidCommandID, "command id %s is not valid", raw)
		}
		id = n.String()
	}

	cp, ok := c.captures[id]
	if !ok {
		return failure("", osc.ErrorInvalidCommandID, "no command with id %q", id)
	}

	cp.remaining--
	if cp.remaining > 0 {
		return http.StatusOK, commandResponse{
			Name:     osc.CommandTakePicture,
			State:    osc.StateInProgress,
			ID:       id,
			Progress: &progress{Completion: 1 - float64(cp.remaining)/float64(c.opts.Steps)},
		}
	}
	delete(c.captures, id)
	return c.storePicture(cp.file)
}

func (c *Camera) getOptions(req commandRequest) (int, commandResponse) {
	var params struct {
		OptionNames []string `json:"optionNames"`
	}
	if len(req.Parameters) == 0 {
		return failure(req.Name, osc.ErrorMissingParameter, "optionNames is required")
	}
	if err := json.Unmarshal(req.Parameters, &params); err != nil || params.OptionNames == nil {
		return failure(req.Name, osc.ErrorInvalidParameterValue, "optionNames must be a list of names")
	}

	values := make(map[string]any, len(params.OptionNames))
	for _, name := range params.OptionNames {
		v, ok := c.values[name]
		if !ok {
			return failure(req.Name, osc.ErrorInvalidParameterValue, "option %q is not supported", name)
		}
		values[name] = v
	}
	return done(req.Name, map[string]any{"options": values})
}

func (c *Camera) setOptions(req commandRequest) (int, commandResponse) {
	var params struct {
		Options map[string]json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(req.Parameters, &params); err != nil || params.Options == nil {
		return failure(req.Name, osc.ErrorMissingParameter, "options is required")
	}

	updates := make(map[string]any, len(params.Options))
	for _, name := range slices.Sorted(maps.Keys(params.Options)) {
		if _, ok := c.values[name]; !ok || readOnlyOptions[name] {
			return failure(req.Name, osc.ErrorInvalidParameterName, "option %q cannot be set", name)
		}
		var v any
		if err := json.Unmarshal(params.Options[name], &v); err != nil {
			return failure(req.Name, osc.ErrorInvalidParameterValue, "option %q: %v", name, err)
		}
		updates[name] = v
	}
	maps.Copy(c.values, updates)
	c.fingerprint++
	return done(req.Name, nil)
}

func (c *Camera) listFiles(req commandRequest) (int, commandResponse) {
	params := struct {
		EntryCount    *int `json:"entryCount"`
		StartPosition int  `json:"startPosition"`
	}{}
	if len(req.Parameters) > 0 {
		if err := json.Unmarshal(req.Parameters, &params); err != nil {
			return failure(req.Name, osc.ErrorInvalidParameterValue, "invalid parameters: %v", err)
		}
	}
	if params.StartPosition < 0 || (params.EntryCount != nil && *params.EntryCount < 0) {
		return failure(req.Name, osc.ErrorInvalidParameterValue, "entryCount and startPosition must not be negative")
	}

	start := min(params.StartPosition, len(c.files))
	end := len(c.files)
	if params.EntryCount != nil {
		end = min(start+*params.EntryCount, end)
	}
	entries := slices.Clone(c.files[start:end])
	if entries == nil {
		entries = []fileEntry{}
	}
	return done(req.Name, map[string]any{
		"entries":      entries,
		"totalEntries": len(c.files),
	})
}

func (c *Camera) deleteFiles(req commandRequest) (int, commandResponse) {
	var params struct {
		FileURLs []string `json:"fileUrls"`
	}
	if err := json.Unmarshal(req.Parameters, &params); err != nil || params.FileURLs == nil {
		return failure(req.Name, osc.ErrorMissingParameter, "fileUrls is required")
	}

	var missing []string
	for _, u := range params.FileURLs {
		i := slices.IndexFunc(c.files, func(f fileEntry) bool { return f.FileURL == u })
		if i < 0 {
			missing = append(missing, u)
			continue
		}
		c.files = slices.Delete(c.files, i, i+1)
	}
	if len(missing) > 0 {
		return failure(req.Name, osc.ErrorInvalidParameterValue, "files not found: %v", missing)
	}
	c.fingerprint++
	return done(req.Name, nil)
}

func (c *Camera) info() map[string]any {
	return map[string]any{
		"manufacturer":    c.opts.Manufacturer,
		"model":           c.opts.Model,
		"serialNumber":    "SIM-0001",
		"firmwareVersion": "1.0.0",
		"supportUrl":      "https://developers.google.com/streetview/open-spherical-camera",
		"gps":             false,
		"gyro":            false,
		"uptime":          int(c.clock.Since(c.started).Seconds()),
		"api": []string{
			osc.InfoPath,
			osc.StatePath,
			osc.CheckForUpdatesPath,
			osc.CommandExecutePath,
			osc.CommandStatusPath,
		},
		"endpoints": map[string]any{"httpPort": 80, "httpUpdatesPort": 80},
		"apiLevel":  []int{2},
	}
}

func (c *Camera) state() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"fingerprint": c.fingerprintText(),
		"state": map[string]any{
			"batteryLevel":    0.8,
			"storageUri":      "sim://storage",
			"_capturesActive": len(c.captures),
		},
	}
}

func (c *Camera) checkForUpdates() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"stateFingerprint": c.fingerprintText(),
		"throttleTimeout":  60,
	}
}

func (c *Camera) fingerprintText() string {
	return fmt.Sprintf("FIG_%04d", c.fingerprint)
}

func (c *Camera) picture(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.ContainsFunc(c.files, func(f fileEntry) bool { return f.Name == name })
}

// pictureData is the content served for every stored picture.
var pictureData = []byte("\xff\xd8\xff\xe0simulated picture\xff\xd9")

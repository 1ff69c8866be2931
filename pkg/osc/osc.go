// Package osc holds the wire vocabulary of the Open Spherical Camera API:
// endpoint paths, protocol headers, command states and option names.
//
// See https://developers.google.com/streetview/open-spherical-camera
package osc

// Endpoint paths, relative to the camera host.
const (
	InfoPath            = "/osc/info"
	StatePath           = "/osc/state"
	CheckForUpdatesPath = "/osc/checkForUpdates"
	CommandExecutePath  = "/osc/commands/execute"
	CommandStatusPath   = "/osc/commands/status"
)

// Headers sent with every request.
const (
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderXSRFProtected = "X-XSRF-Protected"

	MediaTypeJSON      = "application/json"
	ContentTypeJSON    = "application/json;charset=utf-8"
	XSRFProtectedValue = "1"
)

// Members of a command reply.
const (
	FieldName       = "name"
	FieldParameters = "parameters"
	FieldState      = "state"
	FieldID         = "id"
	FieldResults    = "results"
	FieldError      = "error"
	FieldProgress   = "progress"
)

// Command states. Only StateInProgress keeps a command chain polling.
const (
	StateInProgress = "inProgress"
	StateDone       = "done"
	StateError      = "error"
)

// Error codes used in error replies.
const (
	ErrorUnknownCommand        = "unknownCommand"
	ErrorInvalidParameterName  = "invalidParameterName"
	ErrorInvalidParameterValue = "invalidParameterValue"
	ErrorMissingParameter      = "missingParameter"
	ErrorInvalidCommandID      = "invalidCommandId"
)

// Well known command names.
const (
	CommandTakePicture = "camera.takePicture"
	CommandGetOptions  = "camera.getOptions"
	CommandSetOptions  = "camera.setOptions"
	CommandListFiles   = "camera.listFiles"
	CommandDelete      = "camera.delete"
	CommandReset       = "camera.reset"
)

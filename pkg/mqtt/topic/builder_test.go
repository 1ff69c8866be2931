package topic

import "testing"

func TestTopicBuilder(t *testing.T) {
	b := NewTopicBuilder("oscpeer/v1/")

	testCases := []struct {
		name string
		got  string
		want string
	}{
		{name: "execute", got: b.Execute("camera.takePicture"), want: "oscpeer/v1/osc/execute/camera.takePicture"},
		{name: "execute wildcard", got: b.ExecuteWildcard(), want: "oscpeer/v1/osc/execute/+"},
		{name: "result", got: b.Result("camera.listFiles"), want: "oscpeer/v1/osc/result/camera.listFiles"},
		{name: "online", got: b.Online("console-1"), want: "oscpeer/v1/osc/online/console-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestCommandName(t *testing.T) {
	b := NewTopicBuilder("oscpeer/v1")

	testCases := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{topic: "oscpeer/v1/osc/execute/camera.reset", want: "camera.reset", wantOK: true},
		{topic: "oscpeer/v1/osc/execute/", wantOK: false},
		{topic: "oscpeer/v1/osc/execute/a/b", wantOK: false},
		{topic: "other/osc/execute/camera.reset", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.topic, func(t *testing.T) {
			got, ok := b.CommandName(tc.topic)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("CommandName(%q) = %q, %v", tc.topic, got, ok)
			}
		})
	}
}

package watch

import "testing"

func TestTranscriptPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/drop/call.mp3", "/drop/call.txt"},
		{"/drop/meeting.m4a", "/drop/meeting.txt"},
		{"rec.wav", "rec.txt"},
	}
	for _, tt := range tests {
		if got := transcriptPath(tt.in); got != tt.want {
			t.Errorf("transcriptPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/drop/call.mp3", true},
		{"/drop/call.MP3", true},
		{"/drop/call.wav", true},
		{"/drop/call.ogg", true},
		{"/drop/notes.txt", false},
		{"/drop/meta.json", false},
		{"/drop/noext", false},
	}
	for _, tt := range tests {
		if got := isAudioFile(tt.path); got != tt.want {
			t.Errorf("isAudioFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

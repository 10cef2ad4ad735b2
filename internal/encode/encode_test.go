package encode

import (
	"strings"
	"testing"
)

func TestCompressArgs(t *testing.T) {
	args := compressArgs("/tmp/in.mp3", "/tmp/out.ogg")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i /tmp/in.mp3",
		"-vn",
		"-map_metadata -1",
		"-ac 1",
		"-c:a libopus",
		"-b:a 24k",
		"-application voip",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("compressArgs missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/out.ogg" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}
}

func TestEstimateDuration(t *testing.T) {
	// 16000 bytes/s nominal: 1.6 MB ≈ 100 s.
	if got := EstimateDuration(1_600_000); got != 100 {
		t.Errorf("EstimateDuration(1.6MB) = %v, want 100", got)
	}
	if got := EstimateDuration(0); got <= 0 {
		t.Errorf("EstimateDuration(0) = %v, want positive", got)
	}
	if got := EstimateDuration(-5); got <= 0 {
		t.Errorf("EstimateDuration(-5) = %v, want positive", got)
	}
}

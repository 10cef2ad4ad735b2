package encode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ffprobeAvailable caches whether ffprobe is in PATH.
var ffprobeAvailable *bool

// CheckFFprobe checks if ffprobe is available in PATH.
func CheckFFprobe() bool {
	if ffprobeAvailable != nil {
		return *ffprobeAvailable
	}
	_, err := exec.LookPath("ffprobe")
	avail := err == nil
	ffprobeAvailable = &avail
	return avail
}

// Duration returns the playback duration of an audio buffer in seconds,
// read from container metadata via ffprobe.
func Duration(ctx context.Context, data []byte, ext string) (float64, error) {
	if !CheckFFprobe() {
		return 0, fmt.Errorf("ffprobe not found in PATH")
	}

	tmpDir, err := os.MkdirTemp("", "scribed-probe-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(tmpDir, "input."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("stage input: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", d)
	}
	return d, nil
}

// nominalBytesPerSecond assumes 128 kbit/s, a common compressed-audio rate.
const nominalBytesPerSecond = 16000.0

// EstimateDuration guesses a duration from byte length when metadata is
// unavailable. Chunk byte boundaries never depend on this; it only keeps
// chunk time metadata positive and increasing.
func EstimateDuration(sizeBytes int64) float64 {
	if sizeBytes <= 0 {
		return 1
	}
	return float64(sizeBytes) / nominalBytesPerSecond
}

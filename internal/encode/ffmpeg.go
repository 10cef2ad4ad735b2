package encode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// Compression milestones, as fractions of the compress step.
const (
	milestoneEncoderReady     = 25.0
	milestoneInputStaged      = 50.0
	milestoneTransformDone    = 75.0
	milestoneOutputRead       = 90.0
)

// Compress re-encodes an audio buffer for speech using ffmpeg:
//   - Mono, 24 kbit/s Opus with the voip application profile
//   - Video streams dropped, metadata stripped
//
// The result is typically 80%+ smaller than the input. progress, if non-nil,
// is called at coarse milestones (25/50/75/90). Any failure, including
// ffmpeg missing or unreadable output, is returned as an error the caller
// is expected to treat as "compression unavailable", not as fatal.
func Compress(ctx context.Context, data []byte, ext string, progress func(float64)) ([]byte, error) {
	if progress == nil {
		progress = func(float64) {}
	}

	if !CheckFFmpeg() {
		return nil, fmt.Errorf("ffmpeg not found in PATH")
	}
	progress(milestoneEncoderReady)

	tmpDir, err := os.MkdirTemp("", "scribed-encode-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if ext == "" {
		ext = "bin"
	}
	inPath := filepath.Join(tmpDir, "input."+ext)
	outPath := filepath.Join(tmpDir, "output.ogg")

	if err := os.WriteFile(inPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}
	progress(milestoneInputStaged)

	cmd := exec.CommandContext(ctx, "ffmpeg", compressArgs(inPath, outPath)...)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: %w", err)
	}
	progress(milestoneTransformDone)

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced empty output")
	}
	progress(milestoneOutputRead)

	return out, nil
}

// compressArgs builds the ffmpeg argument list for the voice profile.
func compressArgs(inPath, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-vn",
		"-map_metadata", "-1",
		"-ac", "1",
		"-c:a", "libopus",
		"-b:a", "24k",
		"-application", "voip",
		outPath,
	}
}

package audio

import (
	"path/filepath"
	"strings"
)

// contentTypes maps normalized audio file extensions to MIME types.
var contentTypes = map[string]string{
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"mpga": "audio/mpeg",
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"flac": "audio/flac",
	"webm": "audio/webm",
	"wma":  "audio/x-ms-wma",
	"amr":  "audio/amr",
}

// Ext returns the normalized extension of filename: lowercase, no dot.
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ContentType returns the MIME type for an audio extension, or
// application/octet-stream when the extension is unknown.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsSupported reports whether the extension is a known audio container.
func IsSupported(ext string) bool {
	_, ok := contentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

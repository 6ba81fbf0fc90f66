// Package media wraps the external programs snipscrub plays and trims
// video with: mpv for playback, ffprobe for metadata and ffmpeg for cuts.
package media

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is what a player or probe learns about a loaded file.
type Metadata struct {
	Duration float64
}

// Status is a playback report from a Player.
type Status struct {
	Playing  bool
	Position float64
	Loaded   bool
}

// Player is a media decoder the scrub engine drives but does not own.
type Player interface {
	Load(ctx context.Context, uri string) (Metadata, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64, tolerance time.Duration) error
	Status() <-chan Status
	Close() error
}

// Transcoder cuts a file down to [start, end] and returns the new file.
type Transcoder interface {
	Trim(ctx context.Context, uri string, start, end float64) (string, error)
}

// CheckDependency reports whether command is on PATH.
func CheckDependency(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

var audioExts = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true,
	".flac": true, ".ogg": true, ".opus": true,
}

// AudioOnly reports whether uri names an audio file, judged by extension.
func AudioOnly(uri string) bool {
	return audioExts[strings.ToLower(filepath.Ext(uri))]
}

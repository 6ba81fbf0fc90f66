package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg trims with a stream copy, so cuts land on the nearest keyframes.
type FFmpeg struct {
	Path      string
	OutputDir string
}

func (f FFmpeg) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

func (f FFmpeg) Trim(ctx context.Context, uri string, start, end float64) (string, error) {
	if end <= start {
		return "", fmt.Errorf("invalid trim range %.3f-%.3f", start, end)
	}
	outputFile := trimOutputPath(uri, f.OutputDir)

	cmd := exec.CommandContext(ctx, f.binary(), trimArgs(uri, outputFile, start, end)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to trim video: %w: %s", err, lastLine(stderr.String()))
	}
	return outputFile, nil
}

func trimArgs(input, output string, start, end float64) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", input,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	}
}

// trimOutputPath puts <base>_trim<ext> next to the input, or in dir when set.
func trimOutputPath(input, dir string) string {
	ext := filepath.Ext(input)
	basename := strings.TrimSuffix(filepath.Base(input), ext)
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, basename+"_trim"+ext)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Probe reads the container duration with ffprobe.
func Probe(ctx context.Context, ffprobe, uri string) (Metadata, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		uri,
	).Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to probe %s: %w", uri, err)
	}
	d, err := parseDuration(string(out))
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Duration: d}, nil
}

func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", d)
	}
	return d, nil
}

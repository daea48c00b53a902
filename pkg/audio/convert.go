// Package audio shells out to ffmpeg to prepare voice clips for transcription.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ErrConversionFailed = errors.New("audio conversion failed")

// denoiseFilter tames background hiss before transcription.
const denoiseFilter = "afftdn=nf=-25"

type Converter struct {
	workDir string
}

func NewConverter(workDir string) *Converter {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Converter{workDir: workDir}
}

// ToWAV converts an ogg/webm voice clip to a denoised WAV file. The caller
// owns the returned path and must remove it.
func (c *Converter) ToWAV(ctx context.Context, data []byte, ext string) (string, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString()
	srcPath := filepath.Join(c.workDir, name+ext)
	wavPath := filepath.Join(c.workDir, name+".wav")

	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer os.Remove(srcPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", srcPath, "-af", denoiseFilter, wavPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(wavPath)
		return "", fmt.Errorf("%w: ffmpeg: %v: %s", ErrConversionFailed, err, stderr.String())
	}
	return wavPath, nil
}

// Duration probes a file's length in whole seconds.
func (c *Converter) Duration(ctx context.Context, path string) (int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v: %s", ErrConversionFailed, err, stderr.String())
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse duration: %v", ErrConversionFailed, err)
	}
	return int(seconds), nil
}

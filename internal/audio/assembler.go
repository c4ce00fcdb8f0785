// Package audio concatenates the ordered per-segment clips into the
// final readout via ffmpeg's concat demuxer. On success the
// intermediate clips are deleted; that cleanup is part of this
// package's contract, not the caller's.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"newsreader/internal/entity"
)

// runCommandFunc executes a command and returns its combined output.
// Swapped out in tests.
type runCommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type FFmpegAssembler struct {
	bin string
	run runCommandFunc
	log zerolog.Logger
}

// NewFFmpegAssembler verifies the ffmpeg binary up front so a missing
// install fails the worker at startup, not the first job.
func NewFFmpegAssembler(bin string, log zerolog.Logger) (*FFmpegAssembler, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found in PATH: %s", bin)
	}
	return &FFmpegAssembler{bin: bin, run: runCommand, log: log}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Assemble joins clips, in the given order, into one MP3 at outPath.
func (a *FFmpegAssembler) Assemble(ctx context.Context, clips []string, outPath string) (string, error) {
	if len(clips) == 0 {
		return "", fmt.Errorf("%w: no clips to assemble", entity.ErrAssembly)
	}

	listPath := filepath.Join(filepath.Dir(clips[0]), "concat_list.txt")
	if err := writeConcatList(listPath, clips); err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrAssembly, err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-codec:a", "libmp3lame",
		"-qscale:a", "4",
		outPath,
	}

	out, err := a.run(ctx, a.bin, args...)
	if err != nil {
		// remove the likely partial output
		os.Remove(outPath)
		return "", fmt.Errorf("%w: ffmpeg: %v: %s", entity.ErrAssembly, err, tail(out, 400))
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outPath)
		return "", fmt.Errorf("%w: ffmpeg produced no output", entity.ErrAssembly)
	}

	for _, clip := range clips {
		if err := os.Remove(clip); err != nil {
			a.log.Warn().Err(err).Str("clip", clip).Msg("could not remove intermediate clip")
		}
	}
	return outPath, nil
}

// writeConcatList emits the concat demuxer's file list. Single quotes
// inside paths are escaped per ffmpeg's quoting rules.
func writeConcatList(path string, clips []string) error {
	var sb strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return err
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Package playback plays a finished audio file on the local machine.
//
// Decoding and audio device handling are left to an external player; the
// package only picks one, runs it and reports its failure.
package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoPlayer is returned by [Detect] when none of the known players is
// installed.
var ErrNoPlayer = errors.New("playback: no audio player found on PATH")

// Player plays the audio file at path and returns when playback has ended.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Command plays files by running an external program with the file path as
// its last argument.
type Command struct {
	// Path is the executable name or path.
	Path string

	// Args are passed before the file path.
	Args []string
}

// Compile-time interface assertion.
var _ Player = (*Command)(nil)

// Candidates are the players [Detect] looks for, in order of preference.
var Candidates = []Command{
	{Path: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{Path: "mpg123", Args: []string{"-q"}},
	{Path: "afplay"},
	{Path: "paplay"},
}

// Detect returns the first of [Candidates] that lookPath can resolve.
// lookPath is usually exec.LookPath.
func Detect(lookPath func(string) (string, error)) (*Command, error) {
	for _, c := range Candidates {
		if _, err := lookPath(c.Path); err == nil {
			return &Command{Path: c.Path, Args: append([]string(nil), c.Args...)}, nil
		}
	}
	return nil, ErrNoPlayer
}

// New returns a [Command] for the given executable, or the detected default
// when name is empty.
func New(name string, args []string) (*Command, error) {
	if name == "" {
		return Detect(exec.LookPath)
	}
	return &Command{Path: name, Args: args}, nil
}

// Play runs the player and waits for it to exit. A non-zero exit status is
// reported together with the player's output.
func (c *Command) Play(ctx context.Context, path string) error {
	args := append(append([]string(nil), c.Args...), path)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("starting playback", "player", c.Path, "file", path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("playback: %s: %w", c.Path, ctx.Err())
		}
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("playback: %s: %w: %s", c.Path, err, msg)
		}
		return fmt.Errorf("playback: %s: %w", c.Path, err)
	}
	return nil
}

// String returns the command line without the file path.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Nop is a [Player] that skips playback.
type Nop struct{}

// Compile-time interface assertion.
var _ Player = Nop{}

// Play logs the skipped file and returns nil.
func (Nop) Play(_ context.Context, path string) error {
	slog.Info("playback disabled", "file", path)
	return nil
}

package playback_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/harmonizer/internal/playback"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		want      string
		wantArgs  string
	}{
		{"prefers ffplay", []string{"paplay", "ffplay", "mpg123"}, "ffplay", "-nodisp -autoexit -loglevel quiet"},
		{"mpg123", []string{"mpg123", "afplay"}, "mpg123", "-q"},
		{"macOS", []string{"afplay"}, "afplay", ""},
		{"pulseaudio", []string{"paplay"}, "paplay", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath := func(name string) (string, error) {
				for _, n := range tt.installed {
					if n == name {
						return "/usr/bin/" + name, nil
					}
				}
				return "", exec.ErrNotFound
			}
			cmd, err := playback.Detect(lookPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Path != tt.want {
				t.Errorf("Path = %q, want %q", cmd.Path, tt.want)
			}
			if got := strings.Join(cmd.Args, " "); got != tt.wantArgs {
				t.Errorf("Args = %q, want %q", got, tt.wantArgs)
			}
		})
	}
}

func TestDetect_NothingInstalled(t *testing.T) {
	_, err := playback.Detect(func(string) (string, error) { return "", exec.ErrNotFound })
	if !errors.Is(err, playback.ErrNoPlayer) {
		t.Fatalf("err = %v, want ErrNoPlayer", err)
	}
}

func TestDetect_DoesNotShareArgs(t *testing.T) {
	found := func(string) (string, error) { return "/bin/x", nil }
	a, _ := playback.Detect(found)
	a.Args[0] = "changed"
	b, _ := playback.Detect(found)
	if b.Args[0] != "-nodisp" {
		t.Errorf("Detect leaked a shared slice: %v", b.Args)
	}
}

func TestNew_Explicit(t *testing.T) {
	cmd, err := playback.New("vlc", []string{"--play-and-exit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cmd.String(); got != "vlc --play-and-exit" {
		t.Errorf("String() = %q", got)
	}
}

// shell returns a Command running script through sh with the file path as $1.
func shell(t *testing.T, script string) *playback.Command {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return &playback.Command{Path: "sh", Args: []string{"-c", script, "sh"}}
}

func TestCommand_Play(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := shell(t, `test -s "$1"`)
	if err := cmd.Play(context.Background(), path); err != nil {
		t.Fatalf("Play: %v", err)
	}
}

func TestCommand_PlayFailureIncludesOutput(t *testing.T) {
	cmd := shell(t, `echo "cannot open $1" >&2; exit 3`)

	err := cmd.Play(context.Background(), "missing.mp3")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("err = %v, want wrapped *exec.ExitError", err)
	}
	if !strings.Contains(err.Error(), "cannot open missing.mp3") {
		t.Errorf("error should carry player output, got: %v", err)
	}
}

func TestCommand_PlayCancelled(t *testing.T) {
	cmd := shell(t, `sleep 10`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.Play(ctx, "x.mp3")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNop_Play(t *testing.T) {
	if err := (playback.Nop{}).Play(context.Background(), "output.mp3"); err != nil {
		t.Fatalf("Nop.Play: %v", err)
	}
}

// Package editor opens documents in the user's text editor.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

const fallbackEditor = "vi"

// Launcher edits a file in place and returns when the user is done.
type Launcher interface {
	Edit(ctx context.Context, path string) error
}

// Resolve returns the editor command line: configured first, then $VISUAL,
// then $EDITOR, then vi.
func Resolve(configured string) string {
	for _, candidate := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return fallbackEditor
}

// Split breaks an editor command line into program and arguments using
// shell word rules, so "code --wait" and quoted paths work.
func Split(commandLine string) ([]string, error) {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse editor command %q: %w", commandLine, err)
	}
	if len(args) == 0 {
		return nil, errors.New("editor command resolved to empty executable")
	}
	return args, nil
}

// Terminal runs the editor attached to the current terminal.
type Terminal struct {
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewTerminal returns a launcher for the resolved editor command line.
func NewTerminal(configured string) *Terminal {
	return &Terminal{
		Command: Resolve(configured),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Edit runs the editor on path and waits for it to exit.
func (t *Terminal) Edit(ctx context.Context, path string) error {
	args, err := Split(t.Command)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = t.Stdin
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// EditText writes content to a temporary file named after pattern, opens it
// with l, and returns the saved content. The file is always removed.
func EditText(ctx context.Context, l Launcher, pattern, content string) (string, error) {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := l.Edit(ctx, tmpPath); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}
	return string(edited), nil
}

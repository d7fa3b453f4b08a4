package editor

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		visual     string
		editor     string
		want       string
	}{
		{"configured wins", "code --wait", "nvim", "nano", "code --wait"},
		{"visual before editor", "", "nvim", "nano", "nvim"},
		{"editor", "  ", "", "nano", "nano"},
		{"fallback", "", "", "", "vi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VISUAL", tt.visual)
			t.Setenv("EDITOR", tt.editor)
			if got := Resolve(tt.configured); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.configured, got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"vi", []string{"vi"}, false},
		{"code --wait", []string{"code", "--wait"}, false},
		{`"/Applications/My Editor/bin/edit" -w`, []string{"/Applications/My Editor/bin/edit", "-w"}, false},
		{"", nil, true},
	}

	for _, tt := range tests {
		got, err := Split(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Split(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

type appendLauncher struct {
	suffix string
	err    error
	path   string
}

func (a *appendLauncher) Edit(_ context.Context, path string) error {
	a.path = path
	if a.err != nil {
		return a.err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(a.suffix)
	return err
}

func TestEditTextReturnsSavedContent(t *testing.T) {
	l := &appendLauncher{suffix: "edited\n"}
	got, err := EditText(context.Background(), l, "bdedit-test-*.md", "original\n")
	if err != nil {
		t.Fatalf("EditText error: %v", err)
	}
	if got != "original\nedited\n" {
		t.Errorf("EditText = %q", got)
	}
	if _, err := os.Stat(l.path); !os.IsNotExist(err) {
		t.Errorf("temp file %s should be removed", l.path)
	}
}

func TestEditTextPropagatesEditorFailure(t *testing.T) {
	boom := errors.New("editor crashed")
	l := &appendLauncher{err: boom}
	if _, err := EditText(context.Background(), l, "bdedit-test-*.md", "x"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if _, err := os.Stat(l.path); !os.IsNotExist(err) {
		t.Errorf("temp file %s should be removed", l.path)
	}
}

func TestTerminalEditRunsCommand(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/doc.md"
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	term := &Terminal{Command: "true"}
	if err := term.Edit(context.Background(), path); err != nil {
		t.Errorf("Edit with true: %v", err)
	}

	term = &Terminal{Command: "false"}
	if err := term.Edit(context.Background(), path); err == nil {
		t.Error("Edit with false: expected error")
	}
}

package beads

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/model"
)

type fakeResult struct {
	stdout string
	stderr string
	err    error
}

type fakeCall struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	mu      sync.Mutex
	results []fakeResult
	calls   []fakeCall
}

func (f *fakeRunner) Run(_ context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fakeCall{dir: dir, name: name, args: append([]string{}, args...)})
	if len(f.results) == 0 {
		return nil, nil, errors.New("unexpected command call")
	}
	next := f.results[0]
	f.results = f.results[1:]
	return []byte(next.stdout), []byte(next.stderr), next.err
}

// exitError mimics *exec.ExitError.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func newTestClient(results ...fakeResult) (*Client, *fakeRunner) {
	runner := &fakeRunner{results: results}
	client := NewClient(Options{Command: "bd", WorkDir: "/work", Timeout: time.Second, Runner: runner})
	return client, runner
}

func TestRunAppendsJSONFlagOnce(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"missing", []string{"show", "bd-1"}, []string{"show", "bd-1", "--json"}},
		{"present", []string{"show", "--json", "bd-1"}, []string{"show", "bd-1", "--json"}},
		{"duplicated", []string{"--json", "show", "bd-1", "--json"}, []string{"show", "bd-1", "--json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, runner := newTestClient(fakeResult{stdout: `{}`})
			if _, err := client.Run(context.Background(), tt.args...); err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if got := runner.calls[0].args; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
			if runner.calls[0].dir != "/work" || runner.calls[0].name != "bd" {
				t.Errorf("call = %+v", runner.calls[0])
			}
		})
	}
}

func TestRunDoesNotModifyArgs(t *testing.T) {
	client, _ := newTestClient(fakeResult{stdout: `{}`})
	args := []string{"show", "--json", "bd-1"}
	if _, err := client.Run(context.Background(), args...); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !reflect.DeepEqual(args, []string{"show", "--json", "bd-1"}) {
		t.Errorf("args modified: %q", args)
	}
}

func TestRunReturnsJSON(t *testing.T) {
	client, _ := newTestClient(fakeResult{stdout: "  {\"id\":\"bd-1\"}\n"})
	out, err := client.Run(context.Background(), "show", "bd-1")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if string(out) != `{"id":"bd-1"}` {
		t.Errorf("out = %s", out)
	}
}

func TestRunInvalidJSON(t *testing.T) {
	for _, stdout := range []string{"not json", "", "{broken"} {
		client, _ := newTestClient(fakeResult{stdout: stdout})
		_, err := client.Run(context.Background(), "show", "bd-1")
		if !errors.Is(err, ErrJSONOutput) {
			t.Errorf("stdout %q: error = %v, want ErrJSONOutput", stdout, err)
		}
		if err != nil && !strings.Contains(err.Error(), "failed to parse JSON output") {
			t.Errorf("error %q should mention JSON parsing", err)
		}
	}
}

func TestRunNonZeroExit(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		contains []string
	}{
		{"with stderr", "Error: issue bd-9 not found\n", []string{"exited with code 2", "issue bd-9 not found"}},
		{"without stderr", "", []string{"exited with code 2", "no error output"}},
		{"whitespace stderr", "  \n", []string{"no error output"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(fakeResult{stdout: `{}`, stderr: tt.stderr, err: exitError(2)})
			_, err := client.Run(context.Background(), "show", "bd-9")

			var serr *SubprocessError
			if !errors.As(err, &serr) {
				t.Fatalf("error = %v (%T), want *SubprocessError", err, err)
			}
			if serr.ExitCode != 2 {
				t.Errorf("ExitCode = %d, want 2", serr.ExitCode)
			}
			for _, s := range tt.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q should contain %q", err.Error(), s)
				}
			}
		})
	}
}

func TestRunStartFailure(t *testing.T) {
	client, _ := newTestClient(fakeResult{err: errors.New("executable file not found")})
	_, err := client.Run(context.Background(), "show", "bd-1")

	var serr *SubprocessError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *SubprocessError", err)
	}
	if serr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", serr.ExitCode)
	}
	if !strings.Contains(err.Error(), "executable file not found") {
		t.Errorf("error %q should carry the cause", err)
	}
}

func TestRunAsyncCallsBackOnce(t *testing.T) {
	tests := []struct {
		name    string
		result  fakeResult
		wantErr bool
	}{
		{"success", fakeResult{stdout: `[{"id":"bd-1"}]`}, false},
		{"failure", fakeResult{err: exitError(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(tt.result)

			var mu sync.Mutex
			var results []Result
			done := client.RunAsync(context.Background(), []string{"list"}, func(r Result) {
				mu.Lock()
				defer mu.Unlock()
				results = append(results, r)
			})

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("callback never ran")
			}

			mu.Lock()
			defer mu.Unlock()
			if len(results) != 1 {
				t.Fatalf("callback ran %d times, want 1", len(results))
			}
			if (results[0].Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", results[0].Err, tt.wantErr)
			}
			if !tt.wantErr && len(results[0].Output) == 0 {
				t.Error("expected output on success")
			}
		})
	}
}

func TestShowDecodesArrayAndObject(t *testing.T) {
	for _, stdout := range []string{
		`[{"id":"bd-1","title":"T","status":"open","labels":["ui"]}]`,
		`{"id":"bd-1","title":"T","status":"open","labels":["ui"]}`,
	} {
		client, runner := newTestClient(fakeResult{stdout: stdout})
		issue, err := client.Show(context.Background(), "bd-1")
		if err != nil {
			t.Fatalf("Show error: %v", err)
		}
		if issue.ID != "bd-1" || issue.Title != "T" || len(issue.Labels) != 1 {
			t.Errorf("issue = %+v", issue)
		}
		if want := []string{"show", "bd-1", "--json"}; !reflect.DeepEqual(runner.calls[0].args, want) {
			t.Errorf("args = %q, want %q", runner.calls[0].args, want)
		}
	}
}

func TestShowEmptyArrayIsNotFound(t *testing.T) {
	client, _ := newTestClient(fakeResult{stdout: `[]`})
	if _, err := client.Show(context.Background(), "bd-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestShowRequiresID(t *testing.T) {
	client, runner := newTestClient()
	if _, err := client.Show(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty id")
	}
	if len(runner.calls) != 0 {
		t.Error("bd should not run for an empty id")
	}
}

func TestListArgs(t *testing.T) {
	tests := []struct {
		opts    ListOptions
		want    []string
		wantErr bool
	}{
		{ListOptions{}, []string{"list"}, false},
		{ListOptions{Status: model.StatusOpen, Limit: 5}, []string{"list", "--status", "open", "--limit", "5"}, false},
		{ListOptions{Status: model.StatusReady}, []string{"ready"}, false},
		{ListOptions{Status: model.StatusStale}, []string{"stale"}, false},
		{ListOptions{Status: model.StatusAll, Type: model.TypeBug, Labels: []string{"ui", " "}}, []string{"list", "--all", "--type", "bug", "--label", "ui"}, false},
		{ListOptions{Status: "done"}, nil, true},
	}

	for _, tt := range tests {
		got, err := listArgs(tt.opts)
		if (err != nil) != tt.wantErr {
			t.Errorf("listArgs(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("listArgs(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestListDecodesShapes(t *testing.T) {
	for _, stdout := range []string{
		`[{"id":"bd-1"},{"id":"bd-2"}]`,
		`{"issues":[{"id":"bd-1"},{"id":"bd-2"}]}`,
	} {
		client, _ := newTestClient(fakeResult{stdout: stdout})
		issues, err := client.List(context.Background(), ListOptions{})
		if err != nil {
			t.Fatalf("List error: %v", err)
		}
		if len(issues) != 2 {
			t.Errorf("got %d issues, want 2", len(issues))
		}
	}

	client, _ := newTestClient(fakeResult{stdout: `null`})
	issues, err := client.List(context.Background(), ListOptions{})
	if err != nil || issues == nil || len(issues) != 0 {
		t.Errorf("null list = %v, %v; want empty", issues, err)
	}
}

func TestCreate(t *testing.T) {
	cmd, err := command.BuildCreate(model.Issue{Title: "Fix bug", Type: model.TypeBug})
	if err != nil {
		t.Fatalf("BuildCreate error: %v", err)
	}

	client, runner := newTestClient(fakeResult{stdout: `{"id":"bd-new","title":"Fix bug","issue_type":"bug"}`})
	issue, err := client.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if issue.ID != "bd-new" {
		t.Errorf("ID = %q, want bd-new", issue.ID)
	}
	want := []string{"create", "Fix bug", "--type", "bug", "--json"}
	if !reflect.DeepEqual(runner.calls[0].args, want) {
		t.Errorf("args = %q, want %q", runner.calls[0].args, want)
	}
}

func TestCreateRejectsOtherCommands(t *testing.T) {
	client, runner := newTestClient()
	cmds, _ := command.GenerateUpdate("bd-1", model.ChangeSet{Metadata: model.MetadataChange{Title: model.StringPtr("x")}})
	if _, err := client.Create(context.Background(), cmds[0]); err == nil {
		t.Fatal("expected error for non-create command")
	}
	if len(runner.calls) != 0 {
		t.Error("bd should not run")
	}
}

func labelCommands(t *testing.T) []command.Command {
	t.Helper()
	cmds, err := command.GenerateUpdate("bd-1", model.ChangeSet{
		Labels: model.SetChange{Add: []string{"a", "b", "c"}},
	})
	if err != nil {
		t.Fatalf("GenerateUpdate error: %v", err)
	}
	return cmds
}

func TestApplyRunsInOrder(t *testing.T) {
	cmds := labelCommands(t)
	client, runner := newTestClient(
		fakeResult{stdout: `{}`},
		fakeResult{stdout: `{}`},
		fakeResult{stdout: `{}`},
	)

	var observed []int
	err := client.Apply(context.Background(), cmds, func(i int, _ command.Command, err error) {
		if err != nil {
			t.Errorf("observer got error for %d: %v", i, err)
		}
		observed = append(observed, i)
	})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !reflect.DeepEqual(observed, []int{0, 1, 2}) {
		t.Errorf("observed = %v", observed)
	}
	for i, label := range []string{"a", "b", "c"} {
		want := []string{"label", "add", "bd-1", label, "--json"}
		if !reflect.DeepEqual(runner.calls[i].args, want) {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i].args, want)
		}
	}
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	cmds := labelCommands(t)
	client, runner := newTestClient(
		fakeResult{stdout: `{}`},
		fakeResult{stderr: "label b rejected", err: exitError(1)},
		fakeResult{stdout: `{}`},
	)

	var failures int
	err := client.Apply(context.Background(), cmds, func(_ int, _ command.Command, err error) {
		if err != nil {
			failures++
		}
	})

	var aerr *ApplyError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *ApplyError", err)
	}
	if aerr.Index != 1 || aerr.Applied() != 1 || aerr.Total != 3 {
		t.Errorf("ApplyError = %+v", aerr)
	}
	if !reflect.DeepEqual(aerr.Command.Args, cmds[1].Args) {
		t.Errorf("failed command = %q, want %q", aerr.Command.Args, cmds[1].Args)
	}
	var serr *SubprocessError
	if !errors.As(err, &serr) || !strings.Contains(serr.Error(), "label b rejected") {
		t.Errorf("ApplyError should wrap the subprocess error, got %v", err)
	}
	if !strings.Contains(err.Error(), "command 2 of 3") {
		t.Errorf("error %q should name the failing command", err)
	}
	if len(runner.calls) != 2 {
		t.Errorf("ran %d commands, want 2", len(runner.calls))
	}
	if failures != 1 {
		t.Errorf("observer saw %d failures, want 1", failures)
	}
}

func TestApplyCanceledContext(t *testing.T) {
	cmds := labelCommands(t)
	client, runner := newTestClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Apply(ctx, cmds, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(runner.calls) != 0 {
		t.Error("nothing should run after cancellation")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	if c.Program() != DefaultCommand || c.timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", c)
	}
	if _, ok := c.runner.(ExecRunner); !ok {
		t.Errorf("runner = %T, want ExecRunner", c.runner)
	}
}

// keyedRunner answers "show <id>" by id, so concurrent calls are order free.
type keyedRunner struct {
	mu    sync.Mutex
	byID  map[string]fakeResult
	calls int
}

func (k *keyedRunner) Run(_ context.Context, _ string, _ string, args ...string) ([]byte, []byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.calls++
	res, ok := k.byID[args[1]]
	if !ok {
		return nil, []byte("not found"), exitError(1)
	}
	return []byte(res.stdout), []byte(res.stderr), res.err
}

func TestShowManyFetchesConcurrentlyAndSkipsFailures(t *testing.T) {
	runner := &keyedRunner{byID: map[string]fakeResult{
		"bd-1": {stdout: `[{"id":"bd-1","title":"First","status":"open"}]`},
		"bd-2": {stdout: `{"id":"bd-2","title":"Second","status":"closed"}`},
		"bd-3": {stdout: `not json`},
	}}
	client := NewClient(Options{Runner: runner})

	got := client.ShowMany(context.Background(), []string{"bd-1", "bd-2", "bd-1", " ", "bd-3", "bd-missing"})

	if len(got) != 2 {
		t.Fatalf("got %d issues, want 2: %v", len(got), got)
	}
	if got["bd-1"].Title != "First" || got["bd-2"].Title != "Second" {
		t.Errorf("titles = %q, %q", got["bd-1"].Title, got["bd-2"].Title)
	}
	if runner.calls != 4 {
		t.Errorf("bd ran %d times, want 4 (duplicates and blanks skipped)", runner.calls)
	}
}

func TestShowManyEmpty(t *testing.T) {
	client, runner := newTestClient()
	if got := client.ShowMany(context.Background(), nil); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if len(runner.calls) != 0 {
		t.Errorf("bd ran %d times, want 0", len(runner.calls))
	}
}

// Package beads runs the bd command-line tool and decodes its JSON output.
package beads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/logging"
	"github.com/fancypantalons/bdedit/internal/model"
)

const (
	// DefaultCommand is the bd executable looked up on PATH.
	DefaultCommand = "bd"
	// DefaultTimeout bounds a single bd invocation.
	DefaultTimeout = 30 * time.Second

	jsonFlag = "--json"
)

// Runner executes one process and returns its captured output. A non-zero
// exit is reported through err.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Options configures NewClient. Zero values select the defaults.
type Options struct {
	Command string
	WorkDir string
	Timeout time.Duration
	Runner  Runner
	Logger  *log.Logger
}

// Client wraps the bd CLI.
type Client struct {
	command string
	workDir string
	timeout time.Duration
	runner  Runner
	logger  *log.Logger
}

// NewClient returns a client for opts.
func NewClient(opts Options) *Client {
	c := &Client{
		command: strings.TrimSpace(opts.Command),
		workDir: opts.WorkDir,
		timeout: opts.Timeout,
		runner:  opts.Runner,
		logger:  opts.Logger,
	}
	if c.command == "" {
		c.command = DefaultCommand
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// Program returns the bd executable the client runs.
func (c *Client) Program() string {
	return c.command
}

// Run invokes bd with args and returns its stdout as JSON. The --json flag
// is added when missing and never passed twice.
func (c *Client) Run(ctx context.Context, args ...string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	commandArgs := withJSONFlag(args)
	c.logger.Debug("running bd", "command", c.command, "args", strings.Join(commandArgs, " "))

	stdout, stderr, err := c.runner.Run(ctx, c.workDir, c.command, commandArgs...)
	if err != nil {
		serr := &SubprocessError{
			Args:     commandArgs,
			ExitCode: exitCode(err),
			Stderr:   string(stderr),
			Err:      err,
		}
		c.logger.Error("bd failed", "args", strings.Join(commandArgs, " "), "exit_code", serr.ExitCode, "stderr", strings.TrimSpace(serr.Stderr))
		return nil, serr
	}

	trimmed := bytes.TrimSpace(stdout)
	if !json.Valid(trimmed) {
		c.logger.Error("bd returned invalid JSON", "args", strings.Join(commandArgs, " "), "bytes", len(trimmed))
		return nil, fmt.Errorf("bd %s: %w", strings.Join(commandArgs, " "), ErrJSONOutput)
	}
	return json.RawMessage(trimmed), nil
}

// Result is delivered to a RunAsync callback.
type Result struct {
	Output json.RawMessage
	Err    error
}

// RunAsync runs bd on a new goroutine and calls done exactly once with the
// outcome. The returned channel is closed after done returns.
func (c *Client) RunAsync(ctx context.Context, args []string, done func(Result)) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		out, err := c.Run(ctx, args...)
		done(Result{Output: out, Err: err})
	}()
	return finished
}

// Exec runs one generated command.
func (c *Client) Exec(ctx context.Context, cmd command.Command) (json.RawMessage, error) {
	return c.Run(ctx, cmd.Args...)
}

// Show returns one issue.
func (c *Client) Show(ctx context.Context, id string) (model.Issue, error) {
	if strings.TrimSpace(id) == "" {
		return model.Issue{}, errors.New("issue id must not be empty")
	}

	out, err := c.Run(ctx, "show", id)
	if err != nil {
		return model.Issue{}, fmt.Errorf("show issue %q: %w", id, err)
	}

	issue, err := decodeSingleIssue(out)
	if err != nil {
		return model.Issue{}, fmt.Errorf("show issue %q: %w", id, err)
	}
	return issue, nil
}

// ShowMany fetches ids concurrently and returns the issues that could be
// read, keyed by id. Blank and repeated ids are skipped. Issues that fail to
// load are logged and left out.
func (c *Client) ShowMany(ctx context.Context, ids []string) map[string]model.Issue {
	var mu sync.Mutex
	found := make(map[string]model.Issue, len(ids))

	seen := make(map[string]bool, len(ids))
	var pending []<-chan struct{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		pending = append(pending, c.RunAsync(ctx, []string{"show", id}, func(r Result) {
			if r.Err != nil {
				c.logger.Warn("could not load related issue", "id", id, "err", r.Err)
				return
			}
			issue, err := decodeSingleIssue(r.Output)
			if err != nil {
				c.logger.Warn("could not decode related issue", "id", id, "err", err)
				return
			}
			mu.Lock()
			found[id] = issue
			mu.Unlock()
		}))
	}

	for _, done := range pending {
		<-done
	}
	return found
}

// ListOptions filters List.
type ListOptions struct {
	Status model.Status
	Type   model.IssueType
	Labels []string
	Limit  int
}

// List returns issues matching opts. The query-only statuses map to the bd
// commands that implement them.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]model.Issue, error) {
	args, err := listArgs(opts)
	if err != nil {
		return nil, err
	}

	out, err := c.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	issues, err := decodeIssueList(out)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

func listArgs(opts ListOptions) ([]string, error) {
	var args []string
	switch opts.Status {
	case model.StatusReady:
		args = []string{"ready"}
	case model.StatusStale:
		args = []string{"stale"}
	case model.StatusAll:
		args = []string{"list", "--all"}
	case "":
		args = []string{"list"}
	default:
		if err := model.ValidateStatus(opts.Status); err != nil {
			return nil, err
		}
		args = []string{"list", "--status", string(opts.Status)}
	}

	if opts.Type != "" {
		args = append(args, "--type", string(opts.Type))
	}
	for _, label := range opts.Labels {
		if label = strings.TrimSpace(label); label != "" {
			args = append(args, "--label", label)
		}
	}
	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}
	return args, nil
}

// Create runs a create command and returns the new issue as bd reports it.
func (c *Client) Create(ctx context.Context, cmd command.Command) (model.Issue, error) {
	if cmd.Name() != "create" {
		return model.Issue{}, fmt.Errorf("not a create command: %s", cmd.String())
	}

	out, err := c.Exec(ctx, cmd)
	if err != nil {
		return model.Issue{}, fmt.Errorf("create issue: %w", err)
	}

	issue, err := decodeSingleIssue(out)
	if err != nil {
		return model.Issue{}, fmt.Errorf("create issue: %w", err)
	}
	return issue, nil
}

// Observer is told about each command Apply runs. err is nil on success.
type Observer func(index int, cmd command.Command, err error)

// Apply runs cmds in order and stops at the first failure, which is
// returned as an *ApplyError. Commands that already ran are left applied.
func (c *Client) Apply(ctx context.Context, cmds []command.Command, observe Observer) error {
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return &ApplyError{Index: i, Total: len(cmds), Command: cmd, Err: err}
		}

		_, err := c.Exec(ctx, cmd)
		if observe != nil {
			observe(i, cmd, err)
		}
		if err != nil {
			return &ApplyError{Index: i, Total: len(cmds), Command: cmd, Err: err}
		}
		c.logger.Info("applied", "index", i+1, "total", len(cmds), "command", cmd.ShellString(c.command))
	}
	return nil
}

func withJSONFlag(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a != jsonFlag {
			out = append(out, a)
		}
	}
	return append(out, jsonFlag)
}

// exitCode extracts the process exit status from a Run error, or -1.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

func decodeSingleIssue(data json.RawMessage) (model.Issue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.Issue{}, ErrJSONOutput
	}

	switch trimmed[0] {
	case '[':
		var items []model.Issue
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return model.Issue{}, fmt.Errorf("%w: %v", ErrJSONOutput, err)
		}
		if len(items) == 0 {
			return model.Issue{}, ErrNotFound
		}
		return items[0], nil
	case '{':
		var item model.Issue
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return model.Issue{}, fmt.Errorf("%w: %v", ErrJSONOutput, err)
		}
		if strings.TrimSpace(item.ID) == "" {
			return model.Issue{}, fmt.Errorf("%w: issue has no id", ErrJSONOutput)
		}
		return item, nil
	default:
		return model.Issue{}, fmt.Errorf("%w: expected an issue object or array", ErrJSONOutput)
	}
}

func decodeIssueList(data json.RawMessage) ([]model.Issue, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return []model.Issue{}, nil
	}

	var items []model.Issue
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJSONOutput, err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var wrapped struct {
			Issues []model.Issue `json:"issues"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJSONOutput, err)
		}
		items = wrapped.Issues
	default:
		return nil, fmt.Errorf("%w: expected an issue list", ErrJSONOutput)
	}

	if items == nil {
		items = []model.Issue{}
	}
	return items, nil
}

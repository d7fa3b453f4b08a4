// Package command turns change sets and new issues into bd invocations.
//
// Commands are argument vectors. They are passed to exec as discrete
// arguments and are only quoted when rendered with ShellString.
package command

import (
	"regexp"
	"strings"
)

// Command is one bd invocation, without the program name.
type Command struct {
	Args []string

	// free marks arguments that carry user-written text. They are always
	// quoted in shell form, even when they would be safe bare.
	free []bool
}

func (c *Command) arg(args ...string) {
	for _, a := range args {
		c.Args = append(c.Args, a)
		c.free = append(c.free, false)
	}
}

func (c *Command) text(s string) {
	c.Args = append(c.Args, s)
	c.free = append(c.free, true)
}

func (c *Command) textFlag(name, value string) {
	c.arg(name)
	c.text(value)
}

func newCommand(args ...string) Command {
	var c Command
	c.arg(args...)
	return c
}

// Name returns the subcommand, such as "update" or "dep".
func (c Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (c Command) isFree(i int) bool {
	return i < len(c.free) && c.free[i]
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote wraps s in single quotes for a POSIX shell. Each embedded single
// quote ends the quoted run, is emitted backslash-escaped, and starts a new
// run, so the result is always one word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoteIfNeeded(s string) string {
	if safeWord.MatchString(s) {
		return s
	}
	return Quote(s)
}

// ShellString renders the command as a single shell line run with program.
// Free-text values are always single-quoted; other arguments only when they
// contain characters the shell would interpret.
func (c Command) ShellString(program string) string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteIfNeeded(program))
	for i, a := range c.Args {
		if c.isFree(i) {
			parts = append(parts, Quote(a))
		} else {
			parts = append(parts, quoteIfNeeded(a))
		}
	}
	return strings.Join(parts, " ")
}

// String renders the command as a bd shell line.
func (c Command) String() string {
	return c.ShellString("bd")
}

// Strings renders each command with ShellString.
func Strings(cmds []Command, program string) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.ShellString(program)
	}
	return out
}

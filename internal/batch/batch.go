// Package batch sends several independent commands to a host in one round
// trip and splits the combined output back per command.
//
// Each command is bracketed by sentinel lines on both stdout and stderr:
//
//	__IFC_<batch>_<i>_BEGIN__
//	<command output>
//	__IFC_<batch>_<i>_END__:<exit code>
//
// <batch> is a fresh random id per call, so command output cannot forge a
// sentinel by accident.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/session"
	"github.com/google/uuid"
)

// Executor runs one command string. Satisfied by *pool.Lease and *session.Session.
type Executor interface {
	Execute(ctx context.Context, cmd string, timeout time.Duration) (session.Result, error)
}

// Result is the outcome of one command in a batch. Err is set when the
// command's output could not be recovered; ExitCode is then -1.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// OK reports whether the command completed and exited zero.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Batcher builds and parses batched scripts.
type Batcher struct {
	timeout time.Duration
	newID   func() string
	log     logger.Logger
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithLogger sets the logger used for partial-batch reports.
func WithLogger(l logger.Logger) Option {
	return func(b *Batcher) { b.log = logger.OrNoop(l) }
}

// WithIDFunc overrides the batch id generator.
func WithIDFunc(fn func() string) Option {
	return func(b *Batcher) { b.newID = fn }
}

// New creates a Batcher whose combined invocation is bounded by timeout.
// timeout <= 0 defers to the executor's default.
func New(timeout time.Duration, opts ...Option) *Batcher {
	b := &Batcher{
		timeout: timeout,
		newID:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes commands as one script on ex. The returned slice always has
// one Result per command, in order. A command whose sentinels are missing
// gets a per-slot BATCH error while the others still report normally. The
// error return is non-nil only when the invocation itself failed; slots that
// were recovered from the partial output are still filled in.
func (b *Batcher) Run(ctx context.Context, ex Executor, commands []string) ([]Result, error) {
	if len(commands) == 0 {
		return []Result{}, nil
	}

	id := b.newID()
	script := Script(id, commands)

	res, execErr := ex.Execute(ctx, script, b.timeout)
	results := Parse(id, commands, string(res.Stdout), string(res.Stderr))

	failed := 0
	for i := range results {
		if results[i].Err == nil {
			continue
		}
		failed++
		if execErr != nil {
			results[i].Err = errors.WrapWithCode(execErr, errors.ErrBatch,
				fmt.Sprintf("Command %d of %d did not complete: %s", i+1, len(commands), commands[i]), "")
		}
	}

	if execErr != nil {
		return results, errors.WrapWithCode(execErr, errors.ErrBatch,
			fmt.Sprintf("Batch of %d commands failed; %d completed before the failure", len(commands), len(commands)-failed),
			"")
	}

	if failed > 0 {
		b.log.Warn("batch %.8s: %d of %d commands returned no output", id, failed, len(commands))
	}
	return results, nil
}

func beginMarker(id string, i int) string {
	return fmt.Sprintf("__IFC_%s_%d_BEGIN__", id, i)
}

func endMarker(id string, i int) string {
	return fmt.Sprintf("__IFC_%s_%d_END__", id, i)
}

// Script builds the wrapped shell script for commands under batch id.
func Script(id string, commands []string) string {
	var sb strings.Builder
	for i, cmd := range commands {
		begin, end := beginMarker(id, i), endMarker(id, i)
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "printf '%%s\\n' '%s'; printf '%%s\\n' '%s' >&2\n", begin, begin)
		sb.WriteString(cmd)
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "__ifc_rc=$?; printf '\\n%%s:%%d\\n' '%s' \"$__ifc_rc\"; printf '\\n%%s\\n' '%s' >&2", end, end)
	}
	return sb.String()
}

// Parse splits combined stdout and stderr into one Result per command.
// Every slot is located independently, so a missing sentinel only affects
// its own slot.
func Parse(id string, commands []string, stdout, stderr string) []Result {
	results := make([]Result, len(commands))
	for i, cmd := range commands {
		begin, end := beginMarker(id, i), endMarker(id, i)
		results[i] = Result{Command: cmd, ExitCode: -1}

		out, tail, ok := section(stdout, begin, end+":")
		if !ok {
			results[i].Err = errors.New(errors.ErrBatch,
				fmt.Sprintf("No output boundary for command %d: %s", i+1, cmd),
				"The remote shell may have exited before reaching this command")
			continue
		}

		line, _, _ := strings.Cut(tail, "\n")
		code, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			results[i].Err = errors.WrapWithCode(err, errors.ErrBatch,
				fmt.Sprintf("Unreadable exit status for command %d: %s", i+1, cmd), "")
			continue
		}

		results[i].Stdout = out
		results[i].ExitCode = code
		if errOut, _, ok := section(stderr, begin, end); ok {
			results[i].Stderr = errOut
		}
	}
	return results
}

// section returns the text between a begin line and "\n"+endPrefix, plus
// whatever follows endPrefix.
func section(s, begin, endPrefix string) (body, tail string, ok bool) {
	start := strings.Index(s, begin+"\n")
	if start < 0 {
		return "", "", false
	}
	start += len(begin) + 1

	end := strings.Index(s[start:], "\n"+endPrefix)
	if end < 0 {
		return "", "", false
	}
	body = s[start : start+end]
	tail = s[start+end+1+len(endPrefix):]
	return body, tail, true
}

package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int

	// Error simulates a transport failure: the whole exec fails with it.
	Error error

	// Delay is added before the response is produced.
	Delay time.Duration

	// Abort simulates a command that takes the remote shell down with it.
	// Output so far is returned and the rest of the script never runs.
	Abort bool
}

type patternResponse struct {
	re   *regexp.Regexp
	resp CommandResponse
}

// MockClient simulates an SSH connection for testing.
// Whole commands are matched against registered responses first. Anything
// unmatched is run line by line through a tiny shell that knows printf,
// echo, exit and "$?" assignment, which is enough for batched scripts.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	user     string
	hops     []string
	closed   bool
	closes   int
	alive    bool
	platform string
	delay    time.Duration
	exact    map[string]CommandResponse
	patterns []patternResponse
	handler  func(cmd string) (CommandResponse, bool)
	executed []string

	aliveCalls atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32
}

// NewMockClient creates a healthy mock SSH client for host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		alive:    true,
		platform: "Linux",
		exact:    make(map[string]CommandResponse),
	}
}

var errClosed = errors.New("connection closed")

// ExecContext runs cmd against the registered responses.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errClosed
	}
	m.executed = append(m.executed, cmd)
	delay := m.delay
	m.mu.Unlock()

	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		prev := m.maxActive.Load()
		if n <= prev || m.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}

	if err := sleepCtx(ctx, delay); err != nil {
		return nil, nil, -1, err
	}

	if resp, ok := m.lookup(cmd); ok {
		if err := sleepCtx(ctx, resp.Delay); err != nil {
			return nil, nil, -1, err
		}
		if resp.Error != nil {
			return nil, nil, -1, resp.Error
		}
		return resp.Stdout, resp.Stderr, resp.ExitCode, nil
	}

	return m.runScript(ctx, cmd)
}

var assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=\$\?$`)

// runScript interprets cmd one statement at a time.
func (m *MockClient) runScript(ctx context.Context, script string) ([]byte, []byte, int, error) {
	var stdout, stderr bytes.Buffer
	vars := make(map[string]string)
	rc := 0

	for _, line := range strings.Split(script, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		stmts := strings.Split(line, "; ")
		for _, stmt := range stmts {
			if !isBuiltin(strings.TrimSpace(stmt)) {
				stmts = []string{line}
				break
			}
		}

		for _, stmt := range stmts {
			stmt = strings.TrimSpace(stmt)

			if match := assignRe.FindStringSubmatch(stmt); match != nil {
				vars[match[1]] = strconv.Itoa(rc)
				continue
			}

			if stmt == "exit" || strings.HasPrefix(stmt, "exit ") {
				if code, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(stmt, "exit"))); err == nil {
					rc = code
				}
				return stdout.Bytes(), stderr.Bytes(), rc, nil
			}

			if strings.HasPrefix(stmt, "printf ") || strings.HasPrefix(stmt, "echo ") || stmt == "echo" {
				tokens := tokenize(stmt, vars)
				dst := &stdout
				if n := len(tokens); n > 0 && (tokens[n-1] == ">&2" || tokens[n-1] == "1>&2") {
					dst = &stderr
					tokens = tokens[:n-1]
				}
				if tokens[0] == "echo" {
					dst.WriteString(strings.Join(tokens[1:], " ") + "\n")
				} else if len(tokens) > 1 {
					dst.WriteString(renderPrintf(tokens[1], tokens[2:]))
				}
				rc = 0
				continue
			}

			resp := m.resolve(stmt)
			if err := sleepCtx(ctx, resp.Delay); err != nil {
				return nil, nil, -1, err
			}
			if resp.Error != nil {
				return nil, nil, -1, resp.Error
			}
			stdout.Write(resp.Stdout)
			stderr.Write(resp.Stderr)
			rc = resp.ExitCode
			if resp.Abort {
				return stdout.Bytes(), stderr.Bytes(), rc, nil
			}
		}
	}

	return stdout.Bytes(), stderr.Bytes(), rc, nil
}

func isBuiltin(stmt string) bool {
	return strings.HasPrefix(stmt, "printf ") ||
		strings.HasPrefix(stmt, "echo ") || stmt == "echo" ||
		stmt == "exit" || strings.HasPrefix(stmt, "exit ") ||
		assignRe.MatchString(stmt)
}

// lookup finds an explicitly registered response for cmd. Multi-line
// scripts only match exactly so their lines get interpreted one by one.
func (m *MockClient) lookup(cmd string) (CommandResponse, bool) {
	m.mu.Lock()
	if resp, ok := m.exact[cmd]; ok {
		m.mu.Unlock()
		return resp, true
	}
	if strings.Contains(cmd, "\n") {
		m.mu.Unlock()
		return CommandResponse{}, false
	}
	for _, p := range m.patterns {
		if p.re.MatchString(cmd) {
			m.mu.Unlock()
			return p.resp, true
		}
	}
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		return handler(cmd)
	}
	return CommandResponse{}, false
}

// resolve is lookup plus the handful of commands every host answers.
func (m *MockClient) resolve(cmd string) CommandResponse {
	if resp, ok := m.lookup(cmd); ok {
		return resp
	}

	m.mu.Lock()
	platform := m.platform
	m.mu.Unlock()

	switch cmd {
	case "uname -s", "uname":
		return CommandResponse{Stdout: []byte(platform + "\n")}
	case "true", ":":
		return CommandResponse{}
	case "false":
		return CommandResponse{ExitCode: 1}
	}

	name := strings.Fields(cmd)
	if len(name) == 0 {
		return CommandResponse{}
	}
	return CommandResponse{
		Stderr:   []byte(fmt.Sprintf("sh: %s: command not found\n", name[0])),
		ExitCode: 127,
	}
}

// tokenize splits a statement into shell words, honouring quotes and
// expanding "$name" inside double quotes.
func tokenize(s string, vars map[string]string) []string {
	var tokens []string
	var cur strings.Builder
	inToken := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				end = len(s) - i - 1
			}
			word := s[i+1 : i+1+end]
			if c == '"' {
				word = expandVars(word, vars)
			}
			cur.WriteString(word)
			i += end + 1
			inToken = true
		case ' ', '\t':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

var varRe = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandVars(s string, vars map[string]string) string {
	return varRe.ReplaceAllStringFunc(s, func(ref string) string {
		return vars[ref[1:]]
	})
}

var printfEscapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t")

// renderPrintf supports %s, %d and %% with backslash escapes in the format.
func renderPrintf(format string, args []string) string {
	format = printfEscapes.Replace(format)
	var out strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			out.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case '%':
			out.WriteByte('%')
		case 's', 'd':
			arg := ""
			if next < len(args) {
				arg = args[next]
				next++
			}
			if format[i] == 'd' && arg == "" {
				arg = "0"
			}
			out.WriteString(arg)
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return out.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Alive reports the simulated keepalive result.
func (m *MockClient) Alive() bool {
	m.aliveCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive && !m.closed
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closes++
	return nil
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern. Patterns are
// tried in registration order.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[pattern] = resp
	if re, err := regexp.Compile(pattern); err == nil {
		m.patterns = append(m.patterns, patternResponse{re: re, resp: resp})
	}
}

// SetHandler installs a fallback consulted after exact and pattern matches.
func (m *MockClient) SetHandler(h func(cmd string) (CommandResponse, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// SetAlive controls what the next keepalive probes report.
func (m *MockClient) SetAlive(alive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = alive
}

// SetPlatform sets what "uname -s" prints.
func (m *MockClient) SetPlatform(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.platform = platform
}

// SetDelay adds a fixed round-trip delay to every exec.
func (m *MockClient) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCount returns how many times Close was called.
func (m *MockClient) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Executed returns every command passed to ExecContext, in order.
func (m *MockClient) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

// ExecCount returns how many times ExecContext was called.
func (m *MockClient) ExecCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.executed)
}

// AliveCalls returns how many keepalive probes were made.
func (m *MockClient) AliveCalls() int {
	return int(m.aliveCalls.Load())
}

// MaxConcurrent returns the highest number of overlapping ExecContext calls seen.
func (m *MockClient) MaxConcurrent() int {
	return int(m.maxActive.Load())
}

// Hops returns the jump chain the client was dialed through.
func (m *MockClient) Hops() []string {
	return m.hops
}

// User returns the credential user the client was dialed with.
func (m *MockClient) User() string {
	return m.user
}

var _ sshutil.SSHClient = (*MockClient)(nil)

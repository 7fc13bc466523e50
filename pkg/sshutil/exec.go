package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"golang.org/x/crypto/ssh"
)

// abandonGrace is how long ExecContext waits for a killed remote command
// to return before giving up on its partial output.
const abandonGrace = time.Second

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return c.ExecContext(context.Background(), cmd)
}

// ExecContext runs cmd on a fresh SSH channel, closing the channel when ctx
// is done. A non-zero exit status is reported through exitCode with a nil
// error; err is set only when the command could not run or was cut short.
func (c *Client) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			"Command was cancelled before it started", "")
	}

	session, err := c.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()

		timedOut := errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			fmt.Sprintf("Command didn't finish in time: %s", cmd),
			"The host may be overloaded or the command may be hanging.")

		select {
		case <-done:
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, timedOut
		case <-time.After(abandonGrace):
			return nil, nil, -1, timedOut
		}
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"The connection may have dropped while the command was running.")
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}

//go:build unix

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ptyProcess reads a child's terminal output from the pty master.
type ptyProcess struct {
	master *os.File
	cmd    *exec.Cmd
	log    *logrus.Entry

	closeOnce sync.Once
	closeErr  error
}

func openExec(ctx context.Context, cmdline string, log *logrus.Entry) (io.ReadCloser, error) {
	args := strings.Fields(cmdline)
	if len(args) == 0 {
		return nil, fmt.Errorf("exec target needs a command")
	}

	master, slave, err := createPTY()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("failed to start %q: %w", args[0], err)
	}

	// The child holds its own copy; keeping ours open would hide its exit
	// from the master (no EIO).
	if err := slave.Close(); err != nil {
		log.Warnf("failed to close PTY(tty): %v", err)
	}

	log.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "tty": slave.Name()}).Debug("command started")
	return &ptyProcess{master: master, cmd: cmd, log: log}, nil
}

// Read maps the EIO the master reports after the child has exited to io.EOF.
func (p *ptyProcess) Read(b []byte) (int, error) {
	n, err := p.master.Read(b)
	if err != nil && errors.Is(err, unix.EIO) {
		err = io.EOF
	}
	return n, err
}

// Close kills the child if it is still running, reaps it and closes the master.
func (p *ptyProcess) Close() error {
	p.closeOnce.Do(func() {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.log.Warnf("failed to kill command: %v", err)
		}

		var exitErr *exec.ExitError
		if err := p.cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
			p.log.Warnf("failed to reap command: %v", err)
		}

		if err := p.master.Close(); err != nil {
			p.closeErr = fmt.Errorf("failed to close PTY(ptyx): %w", err)
		}
	})
	return p.closeErr
}

// createPTY opens a pseudo-terminal pair with the slave in raw mode so output
// bytes pass through without CR/LF translation.
func createPTY() (master *os.File, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		ptyPath := slave.Name()

		var cleanupErrs []error
		if closeErr := master.Close(); closeErr != nil {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("close PTY(ptyx): %w", closeErr))
		}
		if closeErr := slave.Close(); closeErr != nil {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("close PTY(tty): %w", closeErr))
		}

		if len(cleanupErrs) > 0 {
			return nil, nil, fmt.Errorf("failed to set PTY(tty) %s to raw mode: %w (cleanup errors: %v)", ptyPath, err, cleanupErrs)
		}
		return nil, nil, fmt.Errorf("failed to set PTY(tty) %s to raw mode: %w", ptyPath, err)
	}

	return master, slave, nil
}

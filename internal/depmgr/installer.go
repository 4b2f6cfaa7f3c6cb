// SPDX-License-Identifier: MPL-2.0

package depmgr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"mvdan.cc/sh/v3/shell"
)

// DefaultCommand is the dependency manager used when the configuration
// does not name one.
const DefaultCommand = "composer"

// LaunchExitCode is reported when the manager process could not be
// started at all, following the shell convention for a missing command.
const LaunchExitCode ExitCode = 127

// installArgs is appended to the configured manager command for every run.
var installArgs = []string{"install", "--optimize"}

type (
	// ExitCode is a dependency manager process exit status. The zero
	// value means success; every other value is a failure.
	ExitCode int

	// Result reports how an install run ended. Error is only set for
	// infrastructure problems (the process could not be launched or
	// waited on); a manager that ran and exited non-zero has a nil
	// Error and a non-zero ExitCode.
	Result struct {
		ExitCode ExitCode
		Error    error
	}

	// Sink receives one line of combined manager output at a time,
	// without the trailing newline. A nil Sink discards output.
	Sink func(line string)

	// Installer runs the configured dependency manager inside a project
	// directory.
	Installer struct {
		command string
		args    []string
	}
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result with the given exit code and no
// error. Use this for non-zero exits that represent normal process
// termination rather than launch failures.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Default returns an Installer for DefaultCommand.
func Default() *Installer {
	return &Installer{
		command: DefaultCommand,
		args:    append([]string{}, installArgs...),
	}
}

// NewInstaller parses a shell-style manager command ("composer",
// "php tools/composer.phar -n", ...) and returns an Installer that will
// run it with the install arguments appended.
func NewInstaller(command string) (*Installer, error) {
	fields, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing dependency manager command %q: %w", command, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("dependency manager command %q is empty", command)
	}

	return &Installer{
		command: fields[0],
		args:    append(fields[1:], installArgs...),
	}, nil
}

// Install runs the manager in dir and streams its combined output to
// sink. It blocks until the process exits and the output goroutine has
// drained the pipe, so no line can arrive after Install returns.
func (i *Installer) Install(ctx context.Context, dir string, sink Sink) *Result {
	cmd := exec.CommandContext(ctx, i.command, i.args...)
	cmd.Dir = dir

	pr, pw, err := os.Pipe()
	if err != nil {
		return NewErrorResult(LaunchExitCode, fmt.Errorf("creating output pipe: %w", err))
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return NewErrorResult(LaunchExitCode, fmt.Errorf("launching %s: %w", i.command, err))
	}

	// The child holds its own copy of the write end now; closing ours
	// means the scanner sees EOF as soon as the process exits.
	_ = pw.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if sink != nil {
				sink(scanner.Text())
			}
		}
		if scanner.Err() != nil {
			// A pathological line overflowed the buffer. Keep draining
			// so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, pr)
		}
	}()

	waitErr := cmd.Wait()
	<-done
	_ = pr.Close()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return NewExitCodeResult(ExitCode(exitErr.ExitCode()))
		}
		return NewErrorResult(LaunchExitCode, fmt.Errorf("running %s: %w", i.command, waitErr))
	}

	return NewSuccessResult()
}

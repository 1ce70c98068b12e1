package deploy

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// Runner executes external build commands. A failure to start the process is
// reported through the error return; a process that runs and exits non-zero
// is not an error, it is surfaced through the exit code.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, dir string, onLine func(string), name string, args ...string) (output string, exitCode int, err error)
}

type execRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() Runner {
	return execRunner{}
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Run(ctx context.Context, dir string, onLine func(string), name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	sink := &lineSink{onLine: onLine}
	cmd.Stdout = sink
	cmd.Stderr = sink
	err := cmd.Run()
	sink.flush()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return sink.output(), exitErr.ExitCode(), nil
		}
		return sink.output(), -1, err
	}
	return sink.output(), 0, nil
}

// lineSink captures combined output while forwarding complete lines to an
// optional callback. Stdout and stderr share the sink, hence the lock.
type lineSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	partial bytes.Buffer
	onLine  func(string)
}

func (s *lineSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(p)
	if s.onLine == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' {
			s.onLine(strings.TrimRight(s.partial.String(), "\r"))
			s.partial.Reset()
		} else {
			s.partial.WriteByte(b)
		}
	}
	return len(p), nil
}

func (s *lineSink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onLine != nil && s.partial.Len() > 0 {
		s.onLine(s.partial.String())
		s.partial.Reset()
	}
}

func (s *lineSink) output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

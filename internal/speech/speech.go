// Package speech announces text through an external text-to-speech command.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/vitaminmoo/neuromenu/internal/config"
)

// ErrNoCommand is returned when no speech command is configured.
var ErrNoCommand = errors.New("no speech command configured")

// Speaker runs one utterance at a time. A new announcement kills the one in
// progress.
type Speaker struct {
	command string
	args    []string
	path    string
	lookErr error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New resolves command on PATH. The speaker is still returned when the
// command is missing; Available reports false and Announce fails.
func New(command string, args ...string) *Speaker {
	s := &Speaker{command: command, args: args}
	if command == "" {
		s.lookErr = ErrNoCommand
		return s
	}
	s.path, s.lookErr = exec.LookPath(command)
	if s.lookErr != nil {
		config.Debugf("speech command %q not usable: %v", command, s.lookErr)
	}
	return s
}

// FromConfig builds a speaker from the speech section of the config file.
func FromConfig(c config.Speech) *Speaker {
	return New(c.Command, c.Args...)
}

// Available reports whether the speech command was found.
func (s *Speaker) Available() bool {
	return s.lookErr == nil
}

// Describe returns a one-line status for the startup log.
func (s *Speaker) Describe() string {
	if s.lookErr != nil {
		return fmt.Sprintf("speech synthesis not available: %v", s.lookErr)
	}
	return fmt.Sprintf("speech: %s ready", filepath.Base(s.path))
}

// Announce starts speaking text and returns without waiting for it to finish.
func (s *Speaker) Announce(text string) error {
	if s.lookErr != nil {
		return fmt.Errorf("speech unavailable: %w", s.lookErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), s.args...), text)
	cmd := exec.CommandContext(ctx, s.path, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", s.command, err)
	}
	config.Debugf("speaking %q (pid %d)", text, cmd.Process.Pid)

	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			slog.Warn("speech command failed", "command", s.command, "error", err)
		}
		cancel()
	}()
	return nil
}

// Stop cuts off the current utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Speaking reports whether an utterance is still running.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Speaker) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

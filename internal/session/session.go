// Package session coordinates a single synthesis engine. Every engine call
// runs on one worker goroutine fed by an unbounded FIFO queue, and results
// come back to the caller through a mailbox drained by a dispatcher
// goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/synth-session/internal/assets"
	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/observability"
)

// Options configures a Session.
type Options struct {
	Engine      engine.Constructor
	Provisioner *assets.Provisioner
	Catalog     *assets.Catalog
	Fingerprint assets.Fingerprint

	// Defaults are applied to every engine before the profile's own
	// configuration.
	Defaults engine.Configuration

	// DebugDir, when set, receives wave.riff and log.txt for synthesis
	// requests that name no output.
	DebugDir string

	Listener Listener
	Logger   zerolog.Logger
}

// Output names the files a synthesis writes. Empty paths write nothing.
type Output struct {
	AudioPath string
	LogPath   string
}

// Session owns one engine worker and its lifecycle state.
type Session struct {
	id       string
	catalog  *assets.Catalog
	listener Listener
	logger   zerolog.Logger

	fsm     *stateMachine
	queue   *fifo[Command]
	mailbox *fifo[any]
	worker  *worker

	mu        sync.RWMutex
	profile   *assets.Profile
	lastError error

	closeOnce  sync.Once
	dispatched chan struct{}
}

// New starts the worker and dispatcher goroutines. The session starts in
// AwaitingSelection and holds no engine until a profile is selected.
func New(opts Options) (*Session, error) {
	if opts.Engine == nil {
		return nil, errors.New("session: engine constructor is required")
	}
	if opts.Provisioner == nil {
		return nil, errors.New("session: provisioner is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFuncs{}
	}

	id := uuid.New().String()
	logger := observability.WithSession(observability.WithComponent(opts.Logger, "session"), id)

	s := &Session{
		id:         id,
		catalog:    opts.Catalog,
		listener:   opts.Listener,
		logger:     logger,
		fsm:        newStateMachine(),
		queue:      newFIFO[Command](true),
		mailbox:    newFIFO[any](false),
		dispatched: make(chan struct{}),
	}
	s.worker = &worker{
		queue:       s.queue,
		post:        s.post,
		ctor:        opts.Engine,
		provisioner: opts.Provisioner,
		fingerprint: opts.Fingerprint,
		defaults:    opts.Defaults,
		debugDir:    opts.DebugDir,
		logger:      observability.WithSession(observability.WithComponent(opts.Logger, "worker"), id),
		done:        make(chan struct{}),
	}

	go s.worker.run()
	go s.dispatch()

	logger.Info().Str("fingerprint", string(opts.Fingerprint)).Msg("Session started")
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.fsm.state()
}

// History returns the most recent transitions, oldest first.
func (s *Session) History() []Transition {
	return s.fsm.snapshot()
}

// Configuration returns the selected profile, if any.
func (s *Session) Configuration() (assets.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return assets.Profile{}, false
	}
	return *s.profile, true
}

// LastError returns the *InitError of the last failed initialization.
// It is cleared when the session leaves InitializeFailed.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Profiles lists the selectable profile names.
func (s *Session) Profiles() []string {
	return s.catalog.Names()
}

// SelectConfiguration chooses a profile and starts initialization. It is
// valid only in AwaitingSelection.
func (s *Session) SelectConfiguration(name string) error {
	if s.queue.isClosed() {
		return ErrClosed
	}
	profile, ok := s.catalog.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}

	t, err := s.fsm.transition(Initializing, AwaitingSelection)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()

	s.post(stateChanged{t: t})
	if !s.enqueue(InitializeCommand{Profile: profile}) {
		return ErrClosed
	}
	s.logger.Info().Str("profile", name).Msg("Profile selected")
	return nil
}

// SubmitText queues text for synthesis and returns the request id carried
// by the matching SynthesisFinished. It is valid only in Ready.
func (s *Session) SubmitText(text string, out Output) (string, error) {
	if s.queue.isClosed() {
		return "", ErrClosed
	}
	if st := s.State(); st != Ready {
		return "", fmt.Errorf("%w: state is %s", ErrNotReady, st)
	}

	id := uuid.New().String()
	cmd := SynthesizeCommand{ID: id, Text: text, AudioPath: out.AudioPath, LogPath: out.LogPath}
	if !s.enqueue(cmd) {
		return "", ErrClosed
	}
	return id, nil
}

// Reset returns to AwaitingSelection from Ready or InitializeFailed. From
// Ready the engine is released by the worker after any queued synthesis.
func (s *Session) Reset() error {
	if s.queue.isClosed() {
		return ErrClosed
	}

	t, err := s.fsm.transition(AwaitingSelection, Ready, InitializeFailed)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.profile = nil
	s.lastError = nil
	s.mu.Unlock()

	s.post(stateChanged{t: t})
	if t.From == Ready {
		s.enqueue(releaseCommand{})
	}
	s.logger.Info().Str("from", t.From.String()).Msg("Session reset")
	return nil
}

// Close stops the session. The command in progress completes, queued
// commands are dropped and the engine is released on the worker. Close
// waits for the worker unless ctx ends first. Notifications already posted
// are still delivered; later ones are dropped.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.queue.close()
		select {
		case <-s.worker.done:
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn().Err(err).Msg("Close timed out waiting for worker")
		}
		s.mailbox.close()
		s.logger.Info().Msg("Session closed")
	})
	return err
}

// Done is closed once the dispatcher has delivered its last notification
// after Close.
func (s *Session) Done() <-chan struct{} {
	return s.dispatched
}

func (s *Session) enqueue(cmd Command) bool {
	if !s.queue.push(cmd) {
		return false
	}
	observability.SetQueueDepth(s.queue.len())
	return true
}

// post hands an event to the dispatcher. It never blocks.
func (s *Session) post(ev any) {
	if !s.mailbox.push(ev) {
		s.logger.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("Dropped notification after close")
	}
}

func (s *Session) dispatch() {
	defer close(s.dispatched)
	for {
		ev, ok := s.mailbox.pop()
		if !ok {
			return
		}
		s.deliver(ev)
	}
}

func (s *Session) deliver(ev any) {
	switch e := ev.(type) {
	case stateChanged:
		s.listener.OnStateChanged(e.t.From, e.t.To)
	case Initialized:
		to := Ready
		if !e.Success {
			to = InitializeFailed
		}
		t, err := s.fsm.transition(to, Initializing)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Initialize result ignored")
			return
		}
		s.mu.Lock()
		if e.Success {
			s.lastError = nil
		} else {
			s.lastError = &InitError{Profile: e.Profile, Err: e.Err}
		}
		s.mu.Unlock()

		if !e.Success {
			s.logger.Error().Err(e.Err).Str("profile", e.Profile).Msg(InitializeFailedMessage)
		}
		s.listener.OnStateChanged(t.From, t.To)
		s.listener.OnInitialized(e)
	case SynthesisFinished:
		s.listener.OnSynthesisFinished(e)
	}
}

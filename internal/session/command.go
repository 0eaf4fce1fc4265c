package session

import (
	"time"

	"github.com/lexiqai/synth-session/internal/assets"
)

// Command is work for the engine worker.
type Command interface {
	isCommand()
}

// InitializeCommand provisions the profile's files and loads a fresh engine.
type InitializeCommand struct {
	Profile assets.Profile
}

// SynthesizeCommand renders Text. Empty paths mean no file output.
type SynthesizeCommand struct {
	ID        string
	Text      string
	AudioPath string
	LogPath   string
}

// releaseCommand drops the current engine after a reset.
type releaseCommand struct{}

func (InitializeCommand) isCommand() {}
func (SynthesizeCommand) isCommand() {}
func (releaseCommand) isCommand() {}

// Result is what the worker reports back.
type Result interface {
	isResult()
}

// Initialized reports the outcome of an InitializeCommand.
type Initialized struct {
	Profile string
	Success bool
	Err     error
}

// SynthesisFinished reports the outcome of a SynthesizeCommand. Duration is
// the length of the written audio, when there is one and it could be read.
type SynthesisFinished struct {
	ID        string
	Success   bool
	AudioPath string
	Duration  time.Duration
}

func (Initialized) isResult() {}
func (SynthesisFinished) isResult() {}

// stateChanged is posted for transitions made by caller operations so that
// listeners see them in order with worker results.
type stateChanged struct {
	t Transition
}

package session

// Listener receives session notifications. All calls are made from one
// dispatcher goroutine, in the order the events happened. A slow listener
// delays later notifications but never the engine worker.
type Listener interface {
	OnStateChanged(from, to State)
	OnInitialized(Initialized)
	OnSynthesisFinished(SynthesisFinished)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StateChanged      func(from, to State)
	Initialized       func(Initialized)
	SynthesisFinished func(SynthesisFinished)
}

func (f ListenerFuncs) OnStateChanged(from, to State) {
	if f.StateChanged != nil {
		f.StateChanged(from, to)
	}
}

func (f ListenerFuncs) OnInitialized(r Initialized) {
	if f.Initialized != nil {
		f.Initialized(r)
	}
}

func (f ListenerFuncs) OnSynthesisFinished(r SynthesisFinished) {
	if f.SynthesisFinished != nil {
		f.SynthesisFinished(r)
	}
}

// Listeners fans notifications out to several listeners in order.
type Listeners []Listener

func (ls Listeners) OnStateChanged(from, to State) {
	for _, l := range ls {
		l.OnStateChanged(from, to)
	}
}

func (ls Listeners) OnInitialized(r Initialized) {
	for _, l := range ls {
		l.OnInitialized(r)
	}
}

func (ls Listeners) OnSynthesisFinished(r SynthesisFinished) {
	for _, l := range ls {
		l.OnSynthesisFinished(r)
	}
}

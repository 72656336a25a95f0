package tokens

import "sync"

type Mode int

const (
	ModeIdle Mode = iota
	ModeInfo
	ModeError
)

func (m Mode) String() string {
	switch m {
	case ModeInfo:
		return "info"
	case ModeError:
		return "error"
	default:
		return "idle"
	}
}

// Alert is the status banner shown above the token list. Idle means hidden;
// info and error are mutually exclusive because Set is the only writer.
type Alert struct {
	mu       sync.Mutex
	mode     Mode
	text     string
	observer func(Mode, string)
}

func NewAlert() *Alert {
	return &Alert{}
}

// Observe registers fn to be called after every Set, under the alert lock.
func (a *Alert) Observe(fn func(mode Mode, text string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observer = fn
}

func (a *Alert) Set(mode Mode, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = mode
	a.text = text
	if a.observer != nil {
		a.observer(mode, text)
	}
}

func (a *Alert) Hide() {
	a.Set(ModeIdle, "")
}

func (a *Alert) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *Alert) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}

func (a *Alert) Hidden() bool {
	return a.Mode() == ModeIdle
}

// Classes returns the CSS classes of the banner element.
func (a *Alert) Classes() []string {
	switch a.Mode() {
	case ModeInfo:
		return []string{"alert", "alert-info"}
	case ModeError:
		return []string{"alert", "alert-error"}
	default:
		return []string{"alert", "hidden"}
	}
}

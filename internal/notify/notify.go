package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultDuration is how long a notice stays visible.
const DefaultDuration = 2500 * time.Millisecond

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is one message shown to the user.
type Notice struct {
	Level   Level
	Text    string
	Expires time.Time
}

// Notifier is the one place user-facing results go, for the composer
// and the list view alike. Every notice is printed once and then stays
// current until its display duration runs out or a newer notice
// replaces it.
type Notifier struct {
	mu      sync.Mutex
	w       io.Writer
	ttl     time.Duration
	now     func() time.Time
	current Notice
}

func New(w io.Writer, ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultDuration
	}
	return &Notifier{w: w, ttl: ttl, now: time.Now}
}

// Info posts a success or status message.
func (n *Notifier) Info(format string, args ...any) {
	n.post(LevelInfo, fmt.Sprintf(format, args...))
}

// Error posts err's message verbatim.
func (n *Notifier) Error(err error) {
	if err == nil {
		return
	}
	n.post(LevelError, err.Error())
}

func (n *Notifier) post(level Level, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = Notice{Level: level, Text: text, Expires: n.now().Add(n.ttl)}
	if n.w == nil {
		return
	}
	if level == LevelError {
		fmt.Fprintf(n.w, "Error: %s\n", text)
		return
	}
	fmt.Fprintln(n.w, text)
}

// Current returns the notice that is still on display, if any.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current.Text == "" || !n.now().Before(n.current.Expires) {
		return Notice{}, false
	}
	return n.current, true
}

package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line status on a terminal while a server call
// runs. On anything that is not a terminal it draws nothing.
type Spinner struct {
	w       io.Writer
	message string
	active  bool
	started bool

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner draws on stderr when stderr is a terminal
func NewSpinner(message string) *Spinner {
	return newSpinner(os.Stderr, message, term.IsTerminal(int(os.Stderr.Fd())))
}

func newSpinner(w io.Writer, message string, active bool) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		active:  active,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation
func (s *Spinner) Start() *Spinner {
	if !s.active || s.started {
		return s
	}
	s.started = true
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(spinnerFrames) {
			fmt.Fprintf(s.w, "\r%s %s", MutedStyle.Render(spinnerFrames[i]), s.message)
			select {
			case <-s.stop:
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Stop clears the line. Safe to call more than once, or without Start.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	if s.started {
		<-s.done
	}
}

// Package cliutil holds the terminal feedback cmd/analyze shows while a
// validate run is in flight: the pipeline can take a few seconds on a
// large schema pair, and a bare hang looks like a stuck process.
package cliutil

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner prints a braille progress indicator with an optional trailing
// message while the A-through-E pipeline runs, and tracks how long the
// run took so the caller can report it once the stages finish. It is a
// no-op once Stop has been called, so deferring Stop is always safe.
type Spinner struct {
	frames  []string
	message string

	mu      sync.Mutex
	running bool
	start   time.Time
	elapsed time.Duration

	stop   sync.Once
	ticker *time.Ticker
	done   chan struct{}
}

// NewSpinner builds a stopped Spinner ready for Start or Run.
func NewSpinner() *Spinner {
	return &Spinner{
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		ticker: time.NewTicker(time.Millisecond * 90),
		done:   make(chan struct{}),
	}
}

// SetMessage sets the text shown next to the spinner frame, e.g. the
// name of the pipeline component currently running.
func (s *Spinner) SetMessage(msg string) {
	msg = strings.TrimSpace(msg)
	msg = strings.TrimRight(msg, ".")
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Run starts the spinner, invokes fn, then stops the spinner once fn
// returns. fn is typically a closure over pipeline.Run.
func (s *Spinner) Run(fn func()) {
	s.Start()
	defer s.Stop()
	fn()
}

// Stop halts the animation, clears the current line, and freezes
// Elapsed at the time between Start and this call.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)
		s.ticker.Stop()
		clearLine()
		s.elapsed = time.Since(s.start)
	})
}

// Start begins animating on a background goroutine. Calling Start twice
// is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.start = time.Now()
	go s.run()
}

// Elapsed reports how long the run took, valid only after Stop.
func (s *Spinner) Elapsed() time.Duration {
	return s.elapsed
}

func (s *Spinner) run() {
	for i := 0; ; i++ {
		select {
		case <-s.ticker.C:
			clearLine()
			f := s.frames[i%len(s.frames)]
			io.WriteString(os.Stdout, fmt.Sprintf("\r%s", f))
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			if msg != "" {
				io.WriteString(os.Stdout, " "+msg+"...")
			}
		case <-s.done:
			return
		}
	}
}

func clearLine() {
	io.WriteString(os.Stdout, "\x1b[0G\x1b[2K\x1b[0G")
}

// IsTerminal reports whether f looks like an interactive terminal, used
// to decide whether the spinner should run at all: progress animation
// on a redirected or piped stdout just pollutes the captured output.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

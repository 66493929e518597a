// Package capture coordinates the browser's audio input modes. The actual
// speech recognition and recording run client-side; the server only tracks
// which mode is active so that live transcription and discrete recording
// never run concurrently, and so navigation or a reset reliably stops both.
package capture

import (
	"fmt"
	"sync"
)

// Mode identifies an audio capture mode.
type Mode string

const (
	// ModeOff means no capture is active.
	ModeOff Mode = "off"
	// ModeLive is continuous speech-to-text with interim results.
	ModeLive Mode = "live"
	// ModeRecord is discrete audio recording for later playback.
	ModeRecord Mode = "record"
)

// Valid reports whether m is a known capture mode.
func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeLive || m == ModeRecord
}

// Controller tracks the exclusive capture resource for one session.
// The zero value is ready to use.
type Controller struct {
	mu     sync.Mutex
	active Mode
}

// Start activates a capture mode, implicitly stopping whichever mode was
// active before. It returns the mode that was stopped (ModeOff if none).
func (c *Controller) Start(m Mode) (stopped Mode, err error) {
	if !m.Valid() || m == ModeOff {
		return ModeOff, fmt.Errorf("invalid capture mode %q", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stopped = c.active
	if stopped == m {
		stopped = ModeOff // already running, nothing to stop
	}
	c.active = m
	return stopped, nil
}

// Stop deactivates any running capture and returns the mode that was
// stopped, ModeOff if none was active.
func (c *Controller) Stop() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	stopped := c.active
	if stopped == "" {
		stopped = ModeOff
	}
	c.active = ModeOff
	return stopped
}

// Active returns the currently running mode.
func (c *Controller) Active() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return ModeOff
	}
	return c.active
}

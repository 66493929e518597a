package capture

import "testing"

func TestControllerStartStop(t *testing.T) {
	var c Controller

	if got := c.Active(); got != ModeOff {
		t.Fatalf("fresh controller should be off, got %q", got)
	}

	stopped, err := c.Start(ModeLive)
	if err != nil {
		t.Fatalf("Start(live): %v", err)
	}
	if stopped != ModeOff {
		t.Errorf("starting from idle should stop nothing, got %q", stopped)
	}
	if c.Active() != ModeLive {
		t.Errorf("expected live active, got %q", c.Active())
	}

	if got := c.Stop(); got != ModeLive {
		t.Errorf("Stop should report live was stopped, got %q", got)
	}
	if c.Active() != ModeOff {
		t.Errorf("expected off after stop, got %q", c.Active())
	}
	if got := c.Stop(); got != ModeOff {
		t.Errorf("stopping an idle controller should report off, got %q", got)
	}
}

func TestControllerExclusivity(t *testing.T) {
	var c Controller

	if _, err := c.Start(ModeRecord); err != nil {
		t.Fatalf("Start(record): %v", err)
	}

	// Starting live must implicitly stop recording.
	stopped, err := c.Start(ModeLive)
	if err != nil {
		t.Fatalf("Start(live): %v", err)
	}
	if stopped != ModeRecord {
		t.Errorf("expected record to be stopped, got %q", stopped)
	}
	if c.Active() != ModeLive {
		t.Errorf("expected live active, got %q", c.Active())
	}

	// Restarting the running mode stops nothing.
	stopped, err = c.Start(ModeLive)
	if err != nil {
		t.Fatalf("restart Start(live): %v", err)
	}
	if stopped != ModeOff {
		t.Errorf("restarting the active mode should stop nothing, got %q", stopped)
	}
}

func TestControllerRejectsInvalidModes(t *testing.T) {
	var c Controller
	for _, m := range []Mode{ModeOff, Mode("bogus"), Mode("")} {
		if _, err := c.Start(m); err == nil {
			t.Errorf("Start(%q) should fail", m)
		}
	}
}

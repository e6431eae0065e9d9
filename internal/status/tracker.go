// internal/status/tracker.go
package status

// Tracker owns the status Snapshot of one channel.
// Not safe for concurrent use; one orchestrator goroutine drives it.
type Tracker struct {
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one read outcome in. The position is only taken from
// successful reads. Reports whether anything changed.
func (t *Tracker) Observe(err error, position int32) (Snapshot, bool) {
	changed := false

	if err == nil {
		// Recovery / OK
		if t.snap.Health != HealthOK {
			t.snap.Health = HealthOK
			changed = true
		}
		// Reset last error code and seconds-in-error on recovery.
		if t.snap.LastErrorCode != CodeNone {
			t.snap.LastErrorCode = CodeNone
			changed = true
		}
		if t.snap.SecondsInError != 0 {
			t.snap.SecondsInError = 0
			changed = true
		}
		if t.snap.Position != position {
			t.snap.Position = position
			changed = true
		}
		return t.snap, changed
	}

	if t.snap.Health != HealthError {
		t.snap.Health = HealthError
		changed = true
	}
	code := ErrorCode(err)
	if t.snap.LastErrorCode != code {
		t.snap.LastErrorCode = code
		changed = true
	}

	// NOTE: seconds_in_error increments on Tick only.
	return t.snap, changed
}

// Tick is called at 1 Hz and counts seconds while not OK.
func (t *Tracker) Tick() (Snapshot, bool) {
	if t.snap.Health == HealthOK || t.snap.Health == HealthStopped {
		return t.snap, false
	}
	if t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

// Stop marks the channel stopped.
func (t *Tracker) Stop() Snapshot {
	t.snap.Health = HealthStopped
	return t.snap
}

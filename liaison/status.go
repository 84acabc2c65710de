// Package liaison is the single outbound command channel to the trading
// server: a FIFO request queue drained by one sender goroutine, plus the
// connection-status state machine everything else keys off.
package liaison

// Status is the externally visible connection state.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Ready
	Sending
	Receiving
	Disconnecting
	Reconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Sending:
		return "sending"
	case Receiving:
		return "receiving"
	case Disconnecting:
		return "disconnecting"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Active reports whether the channel is in a state that accepts requests.
func (s Status) Active() bool {
	switch s {
	case Disconnected, Disconnecting, Reconnecting:
		return false
	}
	return true
}

// EnablesRecalc reports whether a transition from old to new turns the
// desk's recalculation wiring on. The wiring comes up when the channel
// leaves the torn-down states for a live one.
func EnablesRecalc(old, new Status) bool {
	switch old {
	case Disconnected, Reconnecting:
		return new != Disconnected && new != Disconnecting && new != Reconnecting
	}
	return false
}

// DisablesRecalc reports whether a transition into new tears the desk's
// recalculation wiring down.
func DisablesRecalc(old, new Status) bool {
	switch new {
	case Disconnected, Disconnecting, Reconnecting:
		return old != Disconnected && old != Disconnecting && old != Reconnecting
	}
	return false
}

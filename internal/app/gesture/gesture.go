// Package gesture classifies raw button edges into discrete gestures.
package gesture

// Kind is a finalized button gesture: a tap count plus a hold flag.
type Kind int

const (
	None Kind = iota // No gesture finalized
	Tap
	DoubleTap
	TripleTap
	Hold // Hold with no preceding taps
	TapHold
	DoubleTapHold
	TripleTapHold
)

// String returns the string representation of the gesture.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Tap:
		return "tap"
	case DoubleTap:
		return "double-tap"
	case TripleTap:
		return "triple-tap"
	case Hold:
		return "hold"
	case TapHold:
		return "tap+hold"
	case DoubleTapHold:
		return "double-tap+hold"
	case TripleTapHold:
		return "triple-tap+hold"
	default:
		return "unknown"
	}
}

// classify maps an accumulated tap count and hold flag to a gesture. Tap
// counts above three collapse to the triple variants.
func classify(taps int, hold bool) Kind {
	if hold {
		switch {
		case taps == 0:
			return Hold
		case taps == 1:
			return TapHold
		case taps == 2:
			return DoubleTapHold
		default:
			return TripleTapHold
		}
	}
	switch {
	case taps <= 0:
		return None
	case taps == 1:
		return Tap
	case taps == 2:
		return DoubleTap
	default:
		return TripleTap
	}
}

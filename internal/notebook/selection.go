package notebook

// Selection is the half-open cell-index interval [Start, Stop) currently
// highlighted in a notebook. Stop < Start means the anchor sits at the high
// end (a backward extension). The transition functions below compute the
// intended range only; they never clamp, so overshoot from repeated moves
// past the top is preserved and a later Clamp snaps back consistently.
type Selection struct {
	Start int
	Stop  int
}

// First selects the first cell.
func First() Selection {
	return Selection{Start: 0, Stop: 1}
}

// Last selects the last cell. The stop index n+1 is one past the last valid
// index; the render layer relies on this convention, so it is kept as-is.
func Last(n int) Selection {
	return Selection{Start: n, Stop: n + 1}
}

// All selects every cell.
func All(n int) Selection {
	return Selection{Start: 0, Stop: n + 1}
}

// MoveUp collapses the selection to the single cell k above the current
// start.
func (s Selection) MoveUp(k int) Selection {
	return Selection{Start: s.Start - k, Stop: s.Start - k + 1}
}

// MoveDown collapses the selection to the single cell k below the current
// start.
func (s Selection) MoveDown(k int) Selection {
	return Selection{Start: s.Start + k, Stop: s.Start + k + 1}
}

// ExtendUp grows the selection one cell upward. When the range has shrunk to
// the point that the next step would invert it (start-1 == stop), the anchor
// flips to the other end instead.
func (s Selection) ExtendUp() Selection {
	if s.Start-1 == s.Stop {
		return Selection{Start: s.Stop, Stop: s.Start + 1}
	}
	return Selection{Start: s.Start - 1, Stop: s.Stop}
}

// ExtendDown is the downward mirror of ExtendUp.
func (s Selection) ExtendDown() Selection {
	if s.Start+1 == s.Stop {
		return Selection{Start: s.Stop, Stop: s.Start - 1}
	}
	return Selection{Start: s.Start + 1, Stop: s.Stop}
}

// span returns the inclusive index range [lo, hi] the selection covers. A
// forward range [Start, Stop) covers Start..Stop-1; a reversed range covers
// (Stop, Start], mirroring a negative-step slice.
func (s Selection) span() (lo, hi int) {
	if s.Stop < s.Start {
		return s.Stop + 1, s.Start
	}
	return s.Start, s.Stop - 1
}

// Clamp normalizes the intended range into [0, n), preserving direction. It
// is idempotent and is the only place overshoot is discarded. With no cells
// it returns the zero Selection, which Indices resolves to nothing.
func (s Selection) Clamp(n int) Selection {
	if n <= 0 {
		return Selection{}
	}
	lo, hi := s.span()
	if hi < 0 {
		hi = 0
	}
	if lo > n-1 {
		lo = n - 1
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if hi < lo {
		hi = lo
	}
	if s.Stop < s.Start {
		return Selection{Start: hi, Stop: lo - 1}
	}
	return Selection{Start: lo, Stop: hi + 1}
}

// Indices resolves the selection to concrete ascending cell indices within a
// notebook of n cells. An empty notebook resolves to nil.
func (s Selection) Indices(n int) []int {
	if n <= 0 {
		return nil
	}
	lo, hi := s.Clamp(n).span()
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// Anchor returns the index of the cell the selection is anchored on: the
// start for forward ranges and the high end for reversed ones.
func (s Selection) Anchor() int {
	return s.Start
}

// Size reports how many cells the selection spans before clamping.
func (s Selection) Size() int {
	lo, hi := s.span()
	return hi - lo + 1
}

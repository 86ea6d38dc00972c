package service

// DefaultContextRadius is the number of records kept on each side of a match.
const DefaultContextRadius = 2

// WindowRange is an inclusive index range into a batch.
type WindowRange struct {
	Start int
	End   int
}

func (w WindowRange) Len() int {
	return w.End - w.Start + 1
}

// ContextWindow returns [max(0, i-r), min(L-1, i+r)].
func ContextWindow(matchIndex, length, radius int) WindowRange {
	start := matchIndex - radius
	if start < 0 {
		start = 0
	}
	end := matchIndex + radius
	if end > length-1 {
		end = length - 1
	}
	return WindowRange{Start: start, End: end}
}

package engine

import "regexp"

// GapMarker is the placeholder for a missing word in Fill The Gaps prompts
const GapMarker = "_____"

var gapPattern = regexp.MustCompile(`(_____)([.,!?:;…]*)`)

// Segment is one piece of a prompt: literal text or a gap
type Segment struct {
	Text        string
	Gap         bool
	Punctuation string // punctuation directly following the gap
	GapIndex    int
}

// SplitGaps breaks a prompt into text and gap segments. Punctuation that
// follows a gap stays attached to it.
func SplitGaps(question string) []Segment {
	var segments []Segment
	last := 0
	gapCount := 0

	for _, m := range gapPattern.FindAllStringSubmatchIndex(question, -1) {
		if m[0] > last {
			segments = append(segments, Segment{Text: question[last:m[0]]})
		}
		segments = append(segments, Segment{
			Gap:         true,
			Punctuation: question[m[4]:m[5]],
			GapIndex:    gapCount,
		})
		gapCount++
		last = m[1]
	}
	if last < len(question) {
		segments = append(segments, Segment{Text: question[last:]})
	}
	return segments
}

// Render fills every gap in question with fill, keeping punctuation
func Render(question, fill string) string {
	out := ""
	for _, seg := range SplitGaps(question) {
		if seg.Gap {
			out += fill + seg.Punctuation
			continue
		}
		out += seg.Text
	}
	return out
}

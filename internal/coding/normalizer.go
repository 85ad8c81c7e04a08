package coding

import "sort"

// Epsilon absorbs floating-point jitter when comparing interval boundaries.
const Epsilon = 0.005

// durationFloor is the minimum effective duration substituted when the true
// video duration is unknown, guarding all proportion math against division
// by zero.
const durationFloor = 10

// Interval is one entry of a normalized timeline partition: either a recorded
// segment's span with its resolved category, or a synthesized gap.
type Interval struct {
	StartTime float64
	EndTime   float64
	Duration  float64
	CodeID    CodeID
	Label     string
	IsGap     bool
}

// EffectiveDuration returns the duration used for all gap and proportion
// math: the project's duration when known, otherwise the latest observed
// segment or subtitle end, floored at durationFloor.
func EffectiveDuration(p *Project) float64 {
	if p.Duration > 0 {
		return p.Duration
	}
	d := float64(durationFloor)
	for _, seg := range p.Segments {
		if seg.EndTime > d {
			d = seg.EndTime
		}
	}
	for _, sub := range p.Subtitles {
		if sub.EndTime > d {
			d = sub.EndTime
		}
	}
	return d
}

// Normalize converts an unordered set of coded segments into a sorted,
// gap-filled sequence of labeled intervals covering [0, effectiveDuration].
//
// Segments are sorted by start time (stable, so ties keep input order). A
// pointer tracks the furthest end seen so far: time before a segment's start
// that the pointer has not reached is emitted as an uncoded gap, and every
// segment's own span is emitted in full. The pointer never rewinds, so a
// segment overlapping a prior one inserts no gap but still contributes its
// whole interval; output intervals may then overlap, passing input overlap
// through rather than reconciling it. That mirrors the source tool's
// recorded behavior and is deliberately not "fixed" here.
//
// Normalize is pure and total: it never fails, never mutates its input, and
// a code id that no longer resolves yields the label "Unknown".
func Normalize(segments []CodedSegment, codes []CodeDefinition, effectiveDuration float64) []Interval {
	sorted := append([]CodedSegment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	out := make([]Interval, 0, len(sorted)+1)
	pointer := 0.0
	for _, seg := range sorted {
		if seg.StartTime > pointer+Epsilon {
			out = append(out, gapInterval(pointer, seg.StartTime))
		}
		label := UnknownLabel
		if code, ok := findCode(codes, seg.CodeID); ok {
			label = code.Label
		}
		out = append(out, Interval{
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Duration:  seg.EndTime - seg.StartTime,
			CodeID:    seg.CodeID,
			Label:     label,
		})
		if seg.EndTime > pointer {
			pointer = seg.EndTime
		}
	}
	if pointer < effectiveDuration-Epsilon {
		out = append(out, gapInterval(pointer, effectiveDuration))
	}
	return out
}

func gapInterval(start, end float64) Interval {
	return Interval{
		StartTime: start,
		EndTime:   end,
		Duration:  end - start,
		CodeID:    UncodedCodeID,
		Label:     UncodedLabel,
		IsGap:     true,
	}
}

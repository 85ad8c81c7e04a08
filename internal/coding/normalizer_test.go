package coding

import (
	"math"
	"reflect"
	"testing"
)

var testCodes = []CodeDefinition{
	{ID: "catX", Label: "Exploring", Color: "#f42c2c"},
	{ID: "catY", Label: "Stuck", Color: "#ff6411"},
}

func seg(codeID CodeID, start, end float64) CodedSegment {
	return CodedSegment{ID: SegmentID("seg-" + string(codeID)), StreamID: "s1", CodeID: codeID, StartTime: start, EndTime: end}
}

func sumDurations(intervals []Interval) float64 {
	total := 0.0
	for _, iv := range intervals {
		total += iv.Duration
	}
	return total
}

func TestNormalize_empty_input(t *testing.T) {
	out := Normalize(nil, testCodes, 10)
	if len(out) != 1 {
		t.Fatalf("expected single gap interval, got %d", len(out))
	}
	gap := out[0]
	if !gap.IsGap || gap.StartTime != 0 || gap.EndTime != 10 || gap.Label != UncodedLabel {
		t.Errorf("expected uncoded gap [0,10], got %+v", gap)
	}
}

func TestNormalize_gaps_filled(t *testing.T) {
	segments := []CodedSegment{seg("catX", 0, 2), seg("catY", 5, 8)}
	out := Normalize(segments, testCodes, 10)

	want := []struct {
		start, end float64
		label      string
		isGap      bool
	}{
		{0, 2, "Exploring", false},
		{2, 5, UncodedLabel, true},
		{5, 8, "Stuck", false},
		{8, 10, UncodedLabel, true},
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d intervals, got %d: %+v", len(want), len(out), out)
	}
	for i, w := range want {
		iv := out[i]
		if iv.StartTime != w.start || iv.EndTime != w.end || iv.Label != w.label || iv.IsGap != w.isGap {
			t.Errorf("interval %d: want [%v,%v] %q gap=%v, got %+v", i, w.start, w.end, w.label, w.isGap, iv)
		}
	}
	if got := sumDurations(out); got != 10 {
		t.Errorf("durations should sum to 10, got %v", got)
	}
}

func TestNormalize_overlap_passthrough(t *testing.T) {
	// Overlapping 3-5: the pointer never rewinds, so no gap is inserted and
	// the second segment's full span is still emitted.
	segments := []CodedSegment{seg("catX", 0, 5), seg("catY", 3, 7)}
	out := Normalize(segments, testCodes, 7)

	if len(out) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %+v", len(out), out)
	}
	if out[0].StartTime != 0 || out[0].EndTime != 5 || out[0].Label != "Exploring" {
		t.Errorf("first interval: got %+v", out[0])
	}
	if out[1].StartTime != 3 || out[1].EndTime != 7 || out[1].Label != "Stuck" {
		t.Errorf("second interval should keep its full span: got %+v", out[1])
	}
	if got := sumDurations(out); got != 9 {
		t.Errorf("overlap artifact: durations should sum to 9 (> duration 7), got %v", got)
	}
}

func TestNormalize_identity_for_full_partition(t *testing.T) {
	segments := []CodedSegment{seg("catX", 0, 3), seg("catY", 3, 7), seg("catX", 7, 10)}
	out := Normalize(segments, testCodes, 10)

	if len(out) != 3 {
		t.Fatalf("non-overlapping full coverage should pass through unchanged, got %d intervals", len(out))
	}
	for i, iv := range out {
		if iv.IsGap {
			t.Errorf("interval %d: no gap expected, got %+v", i, iv)
		}
		if iv.StartTime != segments[i].StartTime || iv.EndTime != segments[i].EndTime {
			t.Errorf("interval %d should match segment %d: got %+v", i, i, iv)
		}
	}
}

func TestNormalize_out_of_order_input(t *testing.T) {
	segments := []CodedSegment{seg("catY", 5, 8), seg("catX", 0, 2)}
	out := Normalize(segments, testCodes, 10)

	if len(out) != 4 {
		t.Fatalf("expected 4 intervals, got %d", len(out))
	}
	if out[0].Label != "Exploring" || out[2].Label != "Stuck" {
		t.Errorf("segments should be sorted by start time: %+v", out)
	}
	if got := sumDurations(out); math.Abs(got-10) > 1e-9 {
		t.Errorf("partition completeness: durations should sum to 10, got %v", got)
	}
}

func TestNormalize_idempotent_and_input_untouched(t *testing.T) {
	segments := []CodedSegment{seg("catY", 5, 8), seg("catX", 0, 2)}
	first := Normalize(segments, testCodes, 10)
	second := Normalize(segments, testCodes, 10)

	if !reflect.DeepEqual(first, second) {
		t.Error("two calls on the same input should yield identical output")
	}
	if segments[0].CodeID != "catY" || segments[1].CodeID != "catX" {
		t.Error("Normalize must not reorder its input slice")
	}
}

func TestNormalize_unresolved_code(t *testing.T) {
	segments := []CodedSegment{seg("deleted", 0, 4)}
	out := Normalize(segments, testCodes, 10)

	if out[0].Label != UnknownLabel {
		t.Errorf("orphaned code id should resolve to %q, got %q", UnknownLabel, out[0].Label)
	}
	if out[0].CodeID != "deleted" {
		t.Errorf("code id should pass through, got %q", out[0].CodeID)
	}
}

func TestNormalize_segment_beyond_duration_not_clipped(t *testing.T) {
	segments := []CodedSegment{seg("catX", 0, 12)}
	out := Normalize(segments, testCodes, 10)

	if len(out) != 1 {
		t.Fatalf("expected 1 interval (no trailing gap past the pointer), got %d", len(out))
	}
	if out[0].EndTime != 12 {
		t.Errorf("segment past the effective duration is emitted as-is, got end %v", out[0].EndTime)
	}
}

func TestNormalize_epsilon_absorbs_jitter(t *testing.T) {
	segments := []CodedSegment{seg("catX", 0.004, 9.997)}
	out := Normalize(segments, testCodes, 10)

	if len(out) != 1 {
		t.Errorf("sub-epsilon offsets should produce no gap intervals, got %d: %+v", len(out), out)
	}
}

func TestEffectiveDuration(t *testing.T) {
	p := Project{Duration: 42.5}
	if got := EffectiveDuration(&p); got != 42.5 {
		t.Errorf("known duration wins, got %v", got)
	}

	p = Project{
		Segments:  []CodedSegment{seg("catX", 0, 33)},
		Subtitles: []Subtitle{{StartTime: 30, EndTime: 48}},
	}
	if got := EffectiveDuration(&p); got != 48 {
		t.Errorf("expected latest subtitle end 48, got %v", got)
	}

	p = Project{}
	if got := EffectiveDuration(&p); got != durationFloor {
		t.Errorf("empty project should fall back to the floor, got %v", got)
	}
}

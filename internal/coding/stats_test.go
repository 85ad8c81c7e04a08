package coding

import (
	"math"
	"testing"
)

func statsProject(segments ...CodedSegment) Project {
	return Project{
		ID:       "p1",
		Duration: 10,
		Streams: []TimelineStream{
			{ID: "s1", Name: "Primary", Codes: testCodes},
		},
		Segments: segments,
	}
}

func TestAggregateStream_totals(t *testing.T) {
	p := statsProject(seg("catX", 0, 2), seg("catY", 5, 8))
	totals := AggregateStream(&p, &p.Streams[0])

	if got := totals.PerCode["catX"]; got != 2 {
		t.Errorf("catX: expected 2s, got %v", got)
	}
	if got := totals.PerCode["catY"]; got != 3 {
		t.Errorf("catY: expected 3s, got %v", got)
	}
	if totals.Uncoded != 5 {
		t.Errorf("uncoded: expected 5s, got %v", totals.Uncoded)
	}

	sum := totals.Uncoded
	for _, secs := range totals.PerCode {
		sum += secs
	}
	if math.Abs(sum-10) > 0.01 {
		t.Errorf("non-overlapping totals should sum to the duration, got %v", sum)
	}
}

func TestAggregateStream_zero_categories_dropped(t *testing.T) {
	p := statsProject(seg("catX", 0, 10))
	totals := AggregateStream(&p, &p.Streams[0])

	if _, ok := totals.PerCode["catY"]; ok {
		t.Error("categories with no accumulated time should be absent")
	}
	if totals.Uncoded != 0 {
		t.Errorf("full coverage leaves no uncoded time, got %v", totals.Uncoded)
	}
}

func TestAggregateStream_overlap_exceeds_duration(t *testing.T) {
	p := statsProject(seg("catX", 0, 5), seg("catY", 3, 7))
	p.Duration = 7
	totals := AggregateStream(&p, &p.Streams[0])

	sum := totals.Uncoded
	for _, secs := range totals.PerCode {
		sum += secs
	}
	// 5 + 4 = 9 > 7: each overlapping interval contributes in full.
	if math.Abs(sum-9) > 0.01 {
		t.Errorf("overlapping totals should sum to 9, got %v", sum)
	}
}

func TestAggregateStream_ignores_other_streams(t *testing.T) {
	other := seg("catY", 0, 9)
	other.StreamID = "s2"
	p := statsProject(seg("catX", 0, 2), other)
	totals := AggregateStream(&p, &p.Streams[0])

	if _, ok := totals.PerCode["catY"]; ok {
		t.Error("segments on other streams must not leak into this stream's totals")
	}
}

func TestStreamShares_order_and_uncoded_tail(t *testing.T) {
	p := statsProject(seg("catY", 5, 8), seg("catX", 0, 2))
	shares := StreamShares(&p, &p.Streams[0])

	if len(shares) != 3 {
		t.Fatalf("expected catX, catY, uncoded; got %d rows: %+v", len(shares), shares)
	}
	if shares[0].CodeID != "catX" || shares[1].CodeID != "catY" {
		t.Errorf("rows should follow palette order, got %+v", shares)
	}
	last := shares[2]
	if last.CodeID != UncodedCodeID || last.Name != UncodedLabel || last.Color != UncodedColor {
		t.Errorf("uncoded row should close the list, got %+v", last)
	}
}

func TestCountTranscript(t *testing.T) {
	codes := []CodeDefinition{
		{ID: "tr1", Label: "Probing", Color: "#aaa"},
		{ID: "tr2", Label: "Shift", Color: "#bbb"},
	}
	subtitles := []Subtitle{
		{ID: "a", CodeID: "tr1"},
		{ID: "b", CodeID: "tr1"},
		{ID: "c", CodeID: "gone"},
		{ID: "d"},
	}

	counts := CountTranscript(subtitles, codes)
	if len(counts) != 1 {
		t.Fatalf("zero-count and orphaned categories are excluded, got %+v", counts)
	}
	if counts[0].Name != "Probing" || counts[0].Count != 2 {
		t.Errorf("expected Probing x2, got %+v", counts[0])
	}
}

func TestCountTranscript_no_coded_subtitles(t *testing.T) {
	codes := []CodeDefinition{{ID: "tr1", Label: "Probing", Color: "#aaa"}}
	subtitles := []Subtitle{{ID: "a"}, {ID: "b"}}

	if counts := CountTranscript(subtitles, codes); len(counts) != 0 {
		t.Errorf("expected zero entries when nothing is coded, got %+v", counts)
	}
}

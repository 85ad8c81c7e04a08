package coding

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSequenceCSV_format(t *testing.T) {
	p := statsProject(seg("catX", 0, 2), seg("catY", 5, 8))
	got := SequenceCSV(&p, &p.Streams[0])

	want := "StartTime,EndTime,Duration,Label,IsGap\n" +
		"0.000,2.000,2.000,\"Exploring\",false\n" +
		"2.000,5.000,3.000,\"Uncoded / Gap\",true\n" +
		"5.000,8.000,3.000,\"Stuck\",false\n" +
		"8.000,10.000,2.000,\"Uncoded / Gap\",true\n"
	if got != want {
		t.Errorf("csv mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSequenceCSV_label_quote_escaping(t *testing.T) {
	codes := []CodeDefinition{{ID: "q", Label: `say "hi"`, Color: "#000"}}
	p := Project{
		Duration: 5,
		Streams:  []TimelineStream{{ID: "s1", Codes: codes}},
		Segments: []CodedSegment{{ID: "x", StreamID: "s1", CodeID: "q", StartTime: 0, EndTime: 5}},
	}
	got := SequenceCSV(&p, &p.Streams[0])
	if !strings.Contains(got, `"say ""hi"""`) {
		t.Errorf("quotes inside labels should be doubled, got:\n%s", got)
	}
}

func TestBuildSequence_rounding(t *testing.T) {
	p := statsProject(seg("catX", 0.12345, 2.6789))
	records := BuildSequence(&p, &p.Streams[0])

	if records[0].EndTime != 0.123 {
		t.Errorf("gap end should round to 3 decimals, got %v", records[0].EndTime)
	}
	if records[1].StartTime != 0.123 || records[1].EndTime != 2.679 {
		t.Errorf("segment bounds should round to 3 decimals, got %+v", records[1])
	}
}

func TestSequenceJSON_contiguous_and_stable(t *testing.T) {
	p := statsProject(seg("catY", 5, 8), seg("catX", 0, 2))

	first, err := SequenceJSON(&p, &p.Streams[0])
	if err != nil {
		t.Fatalf("SequenceJSON: %v", err)
	}
	second, err := SequenceJSON(&p, &p.Streams[0])
	if err != nil {
		t.Fatalf("SequenceJSON: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("sequence export must be re-derivable byte-for-byte")
	}

	var records []SequenceRecord
	if err := json.Unmarshal(first, &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if records[0].StartTime != 0 {
		t.Errorf("partition should start at 0, got %v", records[0].StartTime)
	}
	for i := 1; i < len(records); i++ {
		if records[i].StartTime != records[i-1].EndTime {
			t.Errorf("output partition must be contiguous at %d: %v != %v",
				i, records[i].StartTime, records[i-1].EndTime)
		}
	}
	if end := records[len(records)-1].EndTime; end != 10 {
		t.Errorf("partition should end at the effective duration, got %v", end)
	}
}

func TestProjectJSON_round_trip_stability(t *testing.T) {
	p := NewProject("Round Trip")
	p.Duration = 12.345
	p.Segments = append(p.Segments, CodedSegment{
		ID: "seg1", StreamID: p.Streams[0].ID, CodeID: "b1", StartTime: 0.001, EndTime: 3.999, Note: "n",
	})
	p.Subtitles = append(p.Subtitles, Subtitle{ID: "sub1", StartTime: 0.5, EndTime: 2, HTML: "<b>hello</b>", CodeID: "tr1"})

	first, err := ProjectJSON(&p)
	if err != nil {
		t.Fatalf("ProjectJSON: %v", err)
	}
	var decoded Project
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, err := ProjectJSON(&decoded)
	if err != nil {
		t.Fatalf("ProjectJSON: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("serialize/deserialize/serialize should be byte-identical")
	}
}

func TestHTMLReport_self_contained(t *testing.T) {
	p := NewProject("Session & One")
	p.Duration = 10
	p.Segments = append(p.Segments, CodedSegment{
		ID: "seg1", StreamID: p.Streams[0].ID, CodeID: "b1", StartTime: 0, EndTime: 4,
	})
	p.Subtitles = append(p.Subtitles, Subtitle{ID: "sub1", StartTime: 1, EndTime: 3, HTML: "<em>verbatim</em>", CodeID: "tr1"})

	doc := HTMLReport(&p)

	if !strings.Contains(doc, "Session &amp; One") {
		t.Error("project name should be escaped in the report")
	}
	if !strings.Contains(doc, "Primary Sequence") {
		t.Error("stream name should appear in the report")
	}
	if !strings.Contains(doc, "<em>verbatim</em>") {
		t.Error("subtitle html is opaque and must pass through unescaped")
	}
	if strings.Contains(doc, "http://") || strings.Contains(doc, "https://") {
		t.Error("report must reference no external assets")
	}
	if !strings.Contains(doc, "UI_Explore") {
		t.Error("coded category should appear in the composition table")
	}
}

func TestHTMLReport_orphaned_segment_rendered_neutral(t *testing.T) {
	p := NewProject("Orphans")
	p.Duration = 10
	p.Segments = append(p.Segments, CodedSegment{
		ID: "seg1", StreamID: p.Streams[0].ID, CodeID: "deleted", StartTime: 0, EndTime: 4,
	})

	// Must not panic and must not invent a strip block for the orphan.
	doc := HTMLReport(&p)
	if strings.Contains(doc, "deleted") {
		t.Error("orphaned code ids should not leak into the document")
	}
}

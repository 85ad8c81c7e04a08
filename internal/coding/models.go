package coding

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ProjectID uniquely identifies a project.
type ProjectID string

// StreamID identifies one coding stream (timeline lane) within a project.
type StreamID string

// SegmentID identifies one coded segment.
type SegmentID string

// SubtitleID identifies one transcript line.
type SubtitleID string

// CodeID identifies a category definition. A segment or subtitle references
// its category only through this id; the referenced definition may have been
// deleted, in which case consumers render the reference as unresolved.
type CodeID string

// NoteID identifies a note palette entry.
type NoteID string

// Reserved values for synthesized gap intervals and unresolved categories.
const (
	UncodedCodeID CodeID = "uncoded"
	UncodedLabel         = "Uncoded / Gap"
	UncodedColor         = "#475569"
	UnknownLabel         = "Unknown"
)

// CodeDefinition is one named, colored category usable on a stream or in the
// transcript. The id is immutable once created; label, color, and shortcut
// are editable.
type CodeDefinition struct {
	ID       CodeID `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Shortcut string `json:"shortcut,omitempty"`
}

// CodedSegment is one labeled time interval recorded on a stream's timeline.
// Invariant: 0 <= StartTime < EndTime. Segments on the same stream may
// overlap; the normalizer tolerates that deterministically.
type CodedSegment struct {
	ID        SegmentID `json:"id"`
	StreamID  StreamID  `json:"streamId"`
	CodeID    CodeID    `json:"codeId"`
	StartTime float64   `json:"startTime"`
	EndTime   float64   `json:"endTime"`
	Note      string    `json:"note,omitempty"`
}

// TimelineStream is a named, independently lockable coding dimension with its
// own category palette. A locked stream rejects segment creation and deletion.
type TimelineStream struct {
	ID       StreamID         `json:"id"`
	Name     string           `json:"name"`
	IsLocked bool             `json:"isLocked"`
	Codes    []CodeDefinition `json:"codes"`
}

// Subtitle is one transcript line with an optional category assignment.
// HTML is an opaque formatted-text blob; the core stores and passes it
// through without parsing it.
type Subtitle struct {
	ID        SubtitleID `json:"id"`
	StartTime float64    `json:"startTime"`
	EndTime   float64    `json:"endTime"`
	HTML      string     `json:"html"`
	CodeID    CodeID     `json:"codeId,omitempty"`
}

// NoteDefinition is a highlight color choice for free-form transcript
// annotation. It has no relationship to segments or categories.
type NoteDefinition struct {
	ID    NoteID `json:"id"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// Project is the aggregate root. Every mutation produces a new Project value
// (clone, modify, replace) so undo/redo can hold immutable snapshots.
// Timestamps are Unix milliseconds.
type Project struct {
	ID              ProjectID        `json:"id"`
	Name            string           `json:"name"`
	VideoFileName   string           `json:"videoFileName,omitempty"`
	CreatedAt       int64            `json:"createdAt"`
	LastModified    int64            `json:"lastModified"`
	Duration        float64          `json:"duration"`
	Subtitles       []Subtitle       `json:"subtitles"`
	Segments        []CodedSegment   `json:"segments"`
	Streams         []TimelineStream `json:"streams"`
	TranscriptCodes []CodeDefinition `json:"transcriptCodes"`
	NotePalette     []NoteDefinition `json:"notePalette"`
}

// DefaultStreamCodes is the behavior palette every new stream starts with.
func DefaultStreamCodes() []CodeDefinition {
	return []CodeDefinition{
		{ID: "b1", Label: "UI_Explore", Color: "#f42c2c", Shortcut: "1"},
		{ID: "b2", Label: "Stuck", Color: "#ff6411", Shortcut: "2"},
		{ID: "b3", Label: "Hacking", Color: "#046408", Shortcut: "3"},
		{ID: "b4", Label: "Fine_Tune", Color: "#1902b2", Shortcut: "4"},
		{ID: "b5", Label: "Rough_Tune", Color: "#35b4fd", Shortcut: "5"},
		{ID: "b6", Label: "Reframe", Color: "#a007d7", Shortcut: "6"},
		{ID: "b7", Label: "Visual_Eva", Color: "#ec4899", Shortcut: "7"},
		{ID: "b8", Label: "Simul_Eva", Color: "#e6f564", Shortcut: "8"},
		{ID: "b9", Label: "Linter_Eva", Color: "#62fdc5", Shortcut: "9"},
	}
}

// DefaultTranscriptCodes is the starting transcript category list.
func DefaultTranscriptCodes() []CodeDefinition {
	return []CodeDefinition{
		{ID: "tr1", Label: "Probing_intuition", Color: "#f3a3df"},
		{ID: "tr2", Label: "Probing_exploration", Color: "#f17d3f"},
		{ID: "tr3", Label: "Evaluation_holistic", Color: "#60ff66"},
		{ID: "tr4", Label: "Perceptual_checking", Color: "#35b4fd"},
		{ID: "tr5", Label: "Strategy_shift", Color: "#a91add"},
	}
}

// DefaultNotePalette is the starting highlight palette.
func DefaultNotePalette() []NoteDefinition {
	return []NoteDefinition{
		{ID: "n1", Color: "#fbbf24", Label: "Amber Highlight"},
		{ID: "n2", Color: "#f472b6", Label: "Pink Highlight"},
		{ID: "n3", Color: "#34d399", Label: "Green Highlight"},
		{ID: "n4", Color: "#60a5fa", Label: "Blue Highlight"},
	}
}

// NewStream returns an unlocked stream with the default palette.
func NewStream(name string) TimelineStream {
	return TimelineStream{
		ID:    StreamID(uuid.NewString()),
		Name:  name,
		Codes: DefaultStreamCodes(),
	}
}

// NewProject returns a project with one "Primary Sequence" stream and the
// default transcript and note palettes. Duration stays 0 until video
// metadata is known; derived views substitute the effective duration.
func NewProject(name string) Project {
	now := time.Now().UnixMilli()
	return Project{
		ID:              ProjectID(uuid.NewString()),
		Name:            name,
		CreatedAt:       now,
		LastModified:    now,
		Subtitles:       []Subtitle{},
		Segments:        []CodedSegment{},
		Streams:         []TimelineStream{NewStream("Primary Sequence")},
		TranscriptCodes: DefaultTranscriptCodes(),
		NotePalette:     DefaultNotePalette(),
	}
}

// Clone returns a deep copy of the project. Mutating the copy never affects
// the original; this is what makes whole-document replacement and snapshot
// history safe.
func (p Project) Clone() Project {
	c := p
	c.Subtitles = append([]Subtitle(nil), p.Subtitles...)
	c.Segments = append([]CodedSegment(nil), p.Segments...)
	c.Streams = make([]TimelineStream, len(p.Streams))
	for i, st := range p.Streams {
		c.Streams[i] = st
		c.Streams[i].Codes = append([]CodeDefinition(nil), st.Codes...)
	}
	c.TranscriptCodes = append([]CodeDefinition(nil), p.TranscriptCodes...)
	c.NotePalette = append([]NoteDefinition(nil), p.NotePalette...)
	return c
}

// Stream returns the stream with the given id, or nil if it does not exist.
func (p *Project) Stream(id StreamID) *TimelineStream {
	for i := range p.Streams {
		if p.Streams[i].ID == id {
			return &p.Streams[i]
		}
	}
	return nil
}

// StreamSegments returns the project's segments belonging to the given
// stream, preserving their original order.
func (p *Project) StreamSegments(id StreamID) []CodedSegment {
	var out []CodedSegment
	for _, seg := range p.Segments {
		if seg.StreamID == id {
			out = append(out, seg)
		}
	}
	return out
}

// sortSubtitlesByStart orders subtitles ascending by start time. The sort is
// stable so equal start times keep their input order.
func sortSubtitlesByStart(subs []Subtitle) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].StartTime < subs[j].StartTime
	})
}

// findCode resolves a code id against a palette. ok is false when the id no
// longer matches any definition (deleted after assignment).
func findCode(codes []CodeDefinition, id CodeID) (CodeDefinition, bool) {
	for _, c := range codes {
		if c.ID == id {
			return c, true
		}
	}
	return CodeDefinition{}, false
}

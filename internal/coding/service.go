package coding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// ErrNoTranscriber is returned when transcription is requested but no
// collaborator is configured.
var ErrNoTranscriber = errors.New("no transcriber configured")

// Service applies the coding business rules (lock enforcement, interval
// validation, all-or-nothing merges, undo/redo) and delegates storage to the
// repository. Derived views are recomputed from the full current document on
// every call; there is no cached state to invalidate.
type Service struct {
	repo        *ProjectRepository
	transcriber Transcriber
	exporter    Exporter

	historyLimit int
	histMu       sync.Mutex
	histories    map[ProjectID]*History
}

// NewService returns a Service over repo. transcriber and exporter may be
// nil when the corresponding collaborator is not configured. If
// historyLimit <= 0, DefaultHistoryLimit is used.
func NewService(repo *ProjectRepository, transcriber Transcriber, exporter Exporter, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{
		repo:         repo,
		transcriber:  transcriber,
		exporter:     exporter,
		historyLimit: historyLimit,
		histories:    make(map[ProjectID]*History),
	}
}

func (s *Service) history(id ProjectID) *History {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	h, ok := s.histories[id]
	if !ok {
		h = NewHistory(s.historyLimit)
		s.histories[id] = h
	}
	return h
}

// mutate snapshots the current project state into its undo history, then
// applies fn through the repository's copy-on-write update. When fn fails,
// neither the document nor the history changes.
func (s *Service) mutate(id ProjectID, fn func(*Project) error) (Project, error) {
	before, err := s.repo.Get(id)
	if err != nil {
		return Project{}, err
	}
	after, err := s.repo.Update(id, fn)
	if err != nil {
		return Project{}, err
	}
	s.history(id).Push(before)
	return after, nil
}

// CreateProject creates a project with default streams and palettes, makes
// it the last-active project, and returns it.
func (s *Service) CreateProject(name string) (Project, error) {
	if name == "" {
		name = "New Analysis"
	}
	p := NewProject(name)
	if err := s.repo.Put(p); err != nil {
		return Project{}, err
	}
	if err := s.repo.SetLastActive(p.ID); err != nil {
		return Project{}, err
	}
	return s.repo.Get(p.ID)
}

// ListProjects returns all projects.
func (s *Service) ListProjects() []Project {
	return s.repo.List()
}

// GetProject returns one project by id.
func (s *Service) GetProject(id ProjectID) (Project, error) {
	return s.repo.Get(id)
}

// DeleteProject removes the project and its undo history.
func (s *Service) DeleteProject(id ProjectID) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.histMu.Lock()
	delete(s.histories, id)
	s.histMu.Unlock()
	return nil
}

// UpdateProject renames the project and/or sets its video metadata. Nil
// fields are left unchanged.
func (s *Service) UpdateProject(id ProjectID, name *string, duration *float64, videoFileName *string) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		if name != nil {
			p.Name = *name
		}
		if duration != nil {
			p.Duration = *duration
		}
		if videoFileName != nil {
			p.VideoFileName = *videoFileName
		}
		return nil
	})
}

// Undo restores the previous snapshot of the project, if any.
func (s *Service) Undo(id ProjectID) (Project, error) {
	current, err := s.repo.Get(id)
	if err != nil {
		return Project{}, err
	}
	prev, ok := s.history(id).Undo(current)
	if !ok {
		return Project{}, ErrNothingToUndo
	}
	return s.restore(prev)
}

// Redo re-applies the most recently undone snapshot, if any.
func (s *Service) Redo(id ProjectID) (Project, error) {
	current, err := s.repo.Get(id)
	if err != nil {
		return Project{}, err
	}
	next, ok := s.history(id).Redo(current)
	if !ok {
		return Project{}, ErrNothingToRedo
	}
	return s.restore(next)
}

// restore replaces the stored document without pushing history.
func (s *Service) restore(p Project) (Project, error) {
	if err := s.repo.Put(p); err != nil {
		return Project{}, err
	}
	return s.repo.Get(p.ID)
}

// AddStream inserts a new stream with the default palette at index (clamped
// to the stream list bounds).
func (s *Service) AddStream(id ProjectID, name string, index int) (Project, error) {
	if name == "" {
		name = "New Stream"
	}
	return s.mutate(id, func(p *Project) error {
		stream := NewStream(name)
		if index < 0 || index > len(p.Streams) {
			index = len(p.Streams)
		}
		p.Streams = append(p.Streams, TimelineStream{})
		copy(p.Streams[index+1:], p.Streams[index:])
		p.Streams[index] = stream
		return nil
	})
}

// UpdateStream renames and/or locks a stream. Nil fields are left unchanged.
func (s *Service) UpdateStream(id ProjectID, streamID StreamID, name *string, locked *bool) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		stream := p.Stream(streamID)
		if stream == nil {
			return ErrStreamNotFound
		}
		if name != nil {
			stream.Name = *name
		}
		if locked != nil {
			stream.IsLocked = *locked
		}
		return nil
	})
}

// DeleteStream removes a stream and its segments. The last remaining stream
// cannot be deleted.
func (s *Service) DeleteStream(id ProjectID, streamID StreamID) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		if p.Stream(streamID) == nil {
			return ErrStreamNotFound
		}
		if len(p.Streams) == 1 {
			return ErrLastStream
		}
		streams := p.Streams[:0]
		for _, st := range p.Streams {
			if st.ID != streamID {
				streams = append(streams, st)
			}
		}
		p.Streams = streams
		segments := p.Segments[:0]
		for _, seg := range p.Segments {
			if seg.StreamID != streamID {
				segments = append(segments, seg)
			}
		}
		p.Segments = segments
		return nil
	})
}

// ReplaceStreamCodes replaces a stream's category palette wholesale.
// Segments referencing removed ids become orphaned and render as Unknown.
func (s *Service) ReplaceStreamCodes(id ProjectID, streamID StreamID, codes []CodeDefinition) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		stream := p.Stream(streamID)
		if stream == nil {
			return ErrStreamNotFound
		}
		stream.Codes = append([]CodeDefinition(nil), codes...)
		return nil
	})
}

// ReplaceTranscriptCodes replaces the transcript category list wholesale.
func (s *Service) ReplaceTranscriptCodes(id ProjectID, codes []CodeDefinition) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		p.TranscriptCodes = append([]CodeDefinition(nil), codes...)
		return nil
	})
}

// ReplaceNotePalette replaces the note palette wholesale.
func (s *Service) ReplaceNotePalette(id ProjectID, palette []NoteDefinition) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		p.NotePalette = append([]NoteDefinition(nil), palette...)
		return nil
	})
}

// RecordSegment appends a new coded segment to a stream. The stream must
// exist and be unlocked, and the interval must satisfy 0 <= start < end.
// Overlap with existing segments is permitted; the normalizer tolerates it.
func (s *Service) RecordSegment(id ProjectID, streamID StreamID, codeID CodeID, start, end float64, note string) (Project, error) {
	if start < 0 || start >= end {
		return Project{}, ErrInvalidInterval
	}
	return s.mutate(id, func(p *Project) error {
		stream := p.Stream(streamID)
		if stream == nil {
			return ErrStreamNotFound
		}
		if stream.IsLocked {
			return ErrStreamLocked
		}
		p.Segments = append(p.Segments, CodedSegment{
			ID:        SegmentID(uuid.NewString()),
			StreamID:  streamID,
			CodeID:    codeID,
			StartTime: start,
			EndTime:   end,
			Note:      note,
		})
		return nil
	})
}

// DeleteSegment removes a segment. The owning stream must be unlocked.
func (s *Service) DeleteSegment(id ProjectID, segmentID SegmentID) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		for i, seg := range p.Segments {
			if seg.ID != segmentID {
				continue
			}
			if stream := p.Stream(seg.StreamID); stream != nil && stream.IsLocked {
				return ErrStreamLocked
			}
			p.Segments = append(p.Segments[:i], p.Segments[i+1:]...)
			return nil
		}
		return ErrSegmentNotFound
	})
}

// AddSubtitle appends a transcript line with a fresh id.
func (s *Service) AddSubtitle(id ProjectID, start, end float64, html string, codeID CodeID) (Project, error) {
	if start < 0 || start >= end {
		return Project{}, ErrInvalidInterval
	}
	return s.mutate(id, func(p *Project) error {
		p.Subtitles = append(p.Subtitles, Subtitle{
			ID:        SubtitleID(uuid.NewString()),
			StartTime: start,
			EndTime:   end,
			HTML:      html,
			CodeID:    codeID,
		})
		return nil
	})
}

// SubtitlePatch carries optional subtitle field updates; nil fields are left
// unchanged. CodeID distinguishes "leave alone" (nil) from "clear" (pointer
// to empty).
type SubtitlePatch struct {
	StartTime *float64
	EndTime   *float64
	HTML      *string
	CodeID    *CodeID
}

// UpdateSubtitle applies a patch to one transcript line.
func (s *Service) UpdateSubtitle(id ProjectID, subtitleID SubtitleID, patch SubtitlePatch) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		for i := range p.Subtitles {
			if p.Subtitles[i].ID != subtitleID {
				continue
			}
			sub := &p.Subtitles[i]
			if patch.StartTime != nil {
				sub.StartTime = *patch.StartTime
			}
			if patch.EndTime != nil {
				sub.EndTime = *patch.EndTime
			}
			if patch.HTML != nil {
				sub.HTML = *patch.HTML
			}
			if patch.CodeID != nil {
				sub.CodeID = *patch.CodeID
			}
			if sub.StartTime < 0 || sub.StartTime >= sub.EndTime {
				return ErrInvalidInterval
			}
			return nil
		}
		return ErrSubtitleNotFound
	})
}

// DeleteSubtitle removes one transcript line.
func (s *Service) DeleteSubtitle(id ProjectID, subtitleID SubtitleID) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		for i, sub := range p.Subtitles {
			if sub.ID == subtitleID {
				p.Subtitles = append(p.Subtitles[:i], p.Subtitles[i+1:]...)
				return nil
			}
		}
		return ErrSubtitleNotFound
	})
}

// SortSubtitles orders the transcript ascending by start time. Derived views
// assume ascending order only after this explicit sort.
func (s *Service) SortSubtitles(id ProjectID) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		sortSubtitlesByStart(p.Subtitles)
		return nil
	})
}

// Transcribe sends the video bytes to the transcription collaborator and
// appends the returned cues as fresh uncategorized subtitles in a single
// update. A collaborator failure leaves the transcript untouched.
func (s *Service) Transcribe(ctx context.Context, id ProjectID, video []byte, mimeType string) (Project, error) {
	if s.transcriber == nil {
		return Project{}, ErrNoTranscriber
	}
	if _, err := s.repo.Get(id); err != nil {
		return Project{}, err
	}
	cues, err := s.transcriber.Transcribe(ctx, video, mimeType)
	if err != nil {
		return Project{}, fmt.Errorf("transcribe: %w", err)
	}
	return s.mutate(id, func(p *Project) error {
		for _, cue := range cues {
			p.Subtitles = append(p.Subtitles, Subtitle{
				ID:        SubtitleID(uuid.NewString()),
				StartTime: cue.StartTime,
				EndTime:   cue.EndTime,
				HTML:      cue.Text,
			})
		}
		return nil
	})
}

// StreamReport bundles one stream's derived statistics.
type StreamReport struct {
	StreamID StreamID        `json:"streamId"`
	Name     string          `json:"name"`
	Shares   []CategoryShare `json:"shares"`
}

// ProjectStats is the full derived-statistics view of a project.
type ProjectStats struct {
	EffectiveDuration float64         `json:"effectiveDuration"`
	Streams           []StreamReport  `json:"streams"`
	TranscriptCounts  []CategoryCount `json:"transcriptCounts"`
}

// Stats recomputes all derived statistics from the current document.
func (s *Service) Stats(id ProjectID) (ProjectStats, error) {
	p, err := s.repo.Get(id)
	if err != nil {
		return ProjectStats{}, err
	}
	stats := ProjectStats{
		EffectiveDuration: round2(EffectiveDuration(&p)),
		Streams:           make([]StreamReport, 0, len(p.Streams)),
		TranscriptCounts:  CountTranscript(p.Subtitles, p.TranscriptCodes),
	}
	for i := range p.Streams {
		stats.Streams = append(stats.Streams, StreamReport{
			StreamID: p.Streams[i].ID,
			Name:     p.Streams[i].Name,
			Shares:   StreamShares(&p, &p.Streams[i]),
		})
	}
	return stats, nil
}

// Sequence returns one stream's normalized interval sequence.
func (s *Service) Sequence(id ProjectID, streamID StreamID) ([]SequenceRecord, error) {
	p, stream, err := s.projectStream(id, streamID)
	if err != nil {
		return nil, err
	}
	return BuildSequence(&p, stream), nil
}

// SequenceJSONArtifact returns one stream's sequence as serialized JSON.
func (s *Service) SequenceJSONArtifact(id ProjectID, streamID StreamID) ([]byte, error) {
	p, stream, err := s.projectStream(id, streamID)
	if err != nil {
		return nil, err
	}
	return SequenceJSON(&p, stream)
}

// SequenceCSVArtifact returns one stream's sequence as CSV.
func (s *Service) SequenceCSVArtifact(id ProjectID, streamID StreamID) (string, error) {
	p, stream, err := s.projectStream(id, streamID)
	if err != nil {
		return "", err
	}
	return SequenceCSV(&p, stream), nil
}

// Report returns the self-contained HTML report.
func (s *Service) Report(id ProjectID) (string, error) {
	p, err := s.repo.Get(id)
	if err != nil {
		return "", err
	}
	return HTMLReport(&p), nil
}

func (s *Service) projectStream(id ProjectID, streamID StreamID) (Project, *TimelineStream, error) {
	p, err := s.repo.Get(id)
	if err != nil {
		return Project{}, nil, err
	}
	stream := p.Stream(streamID)
	if stream == nil {
		return Project{}, nil, ErrStreamNotFound
	}
	return p, stream, nil
}

// ExportPackage writes the full artifact set through the exporter: the HTML
// report, per-stream sequence CSV and JSON, the full project backup, and the
// original video bytes when provided. Artifacts are written independently; a
// failure on one does not block the rest. Returns the names written and any
// joined write errors.
func (s *Service) ExportPackage(id ProjectID, video []byte) ([]string, error) {
	if s.exporter == nil {
		return nil, errors.New("no exporter configured")
	}
	p, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	base := safeName(p.Name)
	type artifact struct {
		name    string
		content []byte
	}
	artifacts := []artifact{{base + "_report.html", []byte(HTMLReport(&p))}}

	for i := range p.Streams {
		stream := &p.Streams[i]
		prefix := base + "_" + safeName(stream.Name)
		artifacts = append(artifacts, artifact{prefix + "_sequence.csv", []byte(SequenceCSV(&p, stream))})
		if jsonSeq, err := SequenceJSON(&p, stream); err == nil {
			artifacts = append(artifacts, artifact{prefix + "_sequence.json", jsonSeq})
		}
	}

	if backup, err := ProjectJSON(&p); err == nil {
		artifacts = append(artifacts, artifact{base + "_full_backup.json", backup})
	}
	if len(video) > 0 {
		name := p.VideoFileName
		if name == "" {
			name = base + "_video.bin"
		}
		artifacts = append(artifacts, artifact{name, video})
	}

	var written []string
	var errs []error
	for _, a := range artifacts {
		if err := s.exporter.Write(a.name, a.content); err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, a.name)
	}
	return written, errors.Join(errs...)
}

// ProjectCount reports the number of stored projects. Used for metrics.
func (s *Service) ProjectCount() int {
	return s.repo.Count()
}

// LastActive returns the tracked last-active project id.
func (s *Service) LastActive() (ProjectID, error) {
	return s.repo.LastActive()
}

// safeName lowercases a project or stream name and replaces every character
// that is not a letter or digit with an underscore, for use in filenames.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

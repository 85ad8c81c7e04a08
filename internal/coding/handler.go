package coding

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"qualivision/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	jsonContentType = "application/json"
	csvContentType  = "text/csv"
	htmlContentType = "text/html; charset=utf-8"
)

// Handler exposes the coding service HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over the given Service, Logger, and optional
// Metrics. Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes returns the router for all project endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Route("/{project_id}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Patch("/", h.UpdateProject)
			r.Delete("/", h.DeleteProject)
			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Post("/transcribe", h.Transcribe)
			r.Post("/export", h.ExportPackage)
			r.Get("/report.html", h.Report)
			r.Get("/stats", h.Stats)
			r.Post("/streams", h.AddStream)
			r.Route("/streams/{stream_id}", func(r chi.Router) {
				r.Patch("/", h.UpdateStream)
				r.Delete("/", h.DeleteStream)
				r.Put("/codes", h.ReplaceStreamCodes)
				r.Post("/segments", h.RecordSegment)
				r.Get("/sequence.json", h.SequenceJSON)
				r.Get("/sequence.csv", h.SequenceCSV)
			})
			r.Delete("/segments/{segment_id}", h.DeleteSegment)
			r.Post("/subtitles", h.AddSubtitle)
			r.Post("/subtitles/sort", h.SortSubtitles)
			r.Patch("/subtitles/{subtitle_id}", h.UpdateSubtitle)
			r.Delete("/subtitles/{subtitle_id}", h.DeleteSubtitle)
			r.Put("/transcript-codes", h.ReplaceTranscriptCodes)
			r.Put("/note-palette", h.ReplaceNotePalette)
		})
	})
	return r
}

// CreateProject handles POST /projects. Body: { "name": "My Analysis" }.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		h.log.Debug("invalid project body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.CreateProject(body.Name)
	if err != nil {
		h.writeError(w, "create project", err)
		return
	}
	h.log.Info("project created", slog.String("project_id", string(p.ID)), slog.String("name", p.Name))
	h.writeJSON(w, http.StatusCreated, p)
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.ListProjects())
}

// GetProject handles GET /projects/{project_id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(h.projectID(r))
	if err != nil {
		h.writeError(w, "get project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// UpdateProject handles PATCH /projects/{project_id}.
// Body fields are optional: { "name": ..., "duration": ..., "videoFileName": ... }.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name          *string  `json:"name"`
		Duration      *float64 `json:"duration"`
		VideoFileName *string  `json:"videoFileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.UpdateProject(h.projectID(r), body.Name, body.Duration, body.VideoFileName)
	if err != nil {
		h.writeError(w, "update project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /projects/{project_id}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := h.projectID(r)
	if err := h.svc.DeleteProject(id); err != nil {
		h.writeError(w, "delete project", err)
		return
	}
	h.log.Info("project deleted", slog.String("project_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// Undo handles POST /projects/{project_id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Undo(h.projectID(r))
	if err != nil {
		h.writeError(w, "undo", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// Redo handles POST /projects/{project_id}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Redo(h.projectID(r))
	if err != nil {
		h.writeError(w, "redo", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// AddStream handles POST /projects/{project_id}/streams.
// Body: { "name": "Thinking Stream", "index": 1 } (index optional, appends by default).
func (h *Handler) AddStream(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Index *int   `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	index := -1
	if body.Index != nil {
		index = *body.Index
	}
	p, err := h.svc.AddStream(h.projectID(r), body.Name, index)
	if err != nil {
		h.writeError(w, "add stream", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// UpdateStream handles PATCH /projects/{project_id}/streams/{stream_id}.
// Body fields are optional: { "name": ..., "isLocked": ... }.
func (h *Handler) UpdateStream(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     *string `json:"name"`
		IsLocked *bool   `json:"isLocked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.UpdateStream(h.projectID(r), h.streamID(r), body.Name, body.IsLocked)
	if err != nil {
		h.writeError(w, "update stream", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeleteStream handles DELETE /projects/{project_id}/streams/{stream_id}.
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.DeleteStream(h.projectID(r), h.streamID(r))
	if err != nil {
		h.writeError(w, "delete stream", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// ReplaceStreamCodes handles PUT /projects/{project_id}/streams/{stream_id}/codes.
// Body: JSON array of code definitions.
func (h *Handler) ReplaceStreamCodes(w http.ResponseWriter, r *http.Request) {
	var codes []CodeDefinition
	if err := json.NewDecoder(r.Body).Decode(&codes); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.ReplaceStreamCodes(h.projectID(r), h.streamID(r), codes)
	if err != nil {
		h.writeError(w, "replace stream codes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// ReplaceTranscriptCodes handles PUT /projects/{project_id}/transcript-codes.
func (h *Handler) ReplaceTranscriptCodes(w http.ResponseWriter, r *http.Request) {
	var codes []CodeDefinition
	if err := json.NewDecoder(r.Body).Decode(&codes); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.ReplaceTranscriptCodes(h.projectID(r), codes)
	if err != nil {
		h.writeError(w, "replace transcript codes", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// ReplaceNotePalette handles PUT /projects/{project_id}/note-palette.
func (h *Handler) ReplaceNotePalette(w http.ResponseWriter, r *http.Request) {
	var palette []NoteDefinition
	if err := json.NewDecoder(r.Body).Decode(&palette); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.ReplaceNotePalette(h.projectID(r), palette)
	if err != nil {
		h.writeError(w, "replace note palette", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// RecordSegment handles POST /projects/{project_id}/streams/{stream_id}/segments.
// Body: { "codeId": "b1", "startTime": 1.5, "endTime": 4.2, "note": "..." }.
func (h *Handler) RecordSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CodeID    CodeID  `json:"codeId"`
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
		Note      string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid segment body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.RecordSegment(h.projectID(r), h.streamID(r), body.CodeID, body.StartTime, body.EndTime, body.Note)
	if err != nil {
		h.writeError(w, "record segment", err)
		return
	}
	h.log.Debug("segment recorded",
		slog.String("project_id", string(p.ID)),
		slog.String("stream_id", string(h.streamID(r))),
		slog.String("code_id", string(body.CodeID)))
	if h.metrics != nil {
		h.metrics.IncSegmentsRecorded()
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// DeleteSegment handles DELETE /projects/{project_id}/segments/{segment_id}.
func (h *Handler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.DeleteSegment(h.projectID(r), SegmentID(chi.URLParam(r, "segment_id")))
	if err != nil {
		h.writeError(w, "delete segment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// AddSubtitle handles POST /projects/{project_id}/subtitles.
// Body: { "startTime": 0.5, "endTime": 3.1, "html": "...", "codeId": "tr1" }.
func (h *Handler) AddSubtitle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
		HTML      string  `json:"html"`
		CodeID    CodeID  `json:"codeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.AddSubtitle(h.projectID(r), body.StartTime, body.EndTime, body.HTML, body.CodeID)
	if err != nil {
		h.writeError(w, "add subtitle", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// UpdateSubtitle handles PATCH /projects/{project_id}/subtitles/{subtitle_id}.
func (h *Handler) UpdateSubtitle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartTime *float64 `json:"startTime"`
		EndTime   *float64 `json:"endTime"`
		HTML      *string  `json:"html"`
		CodeID    *CodeID  `json:"codeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	patch := SubtitlePatch{StartTime: body.StartTime, EndTime: body.EndTime, HTML: body.HTML, CodeID: body.CodeID}
	p, err := h.svc.UpdateSubtitle(h.projectID(r), SubtitleID(chi.URLParam(r, "subtitle_id")), patch)
	if err != nil {
		h.writeError(w, "update subtitle", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeleteSubtitle handles DELETE /projects/{project_id}/subtitles/{subtitle_id}.
func (h *Handler) DeleteSubtitle(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.DeleteSubtitle(h.projectID(r), SubtitleID(chi.URLParam(r, "subtitle_id")))
	if err != nil {
		h.writeError(w, "delete subtitle", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// SortSubtitles handles POST /projects/{project_id}/subtitles/sort.
func (h *Handler) SortSubtitles(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.SortSubtitles(h.projectID(r))
	if err != nil {
		h.writeError(w, "sort subtitles", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// Transcribe handles POST /projects/{project_id}/transcribe. The request
// body is the raw video bytes; Content-Type carries the MIME type.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	video, err := io.ReadAll(r.Body)
	if err != nil || len(video) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p, err := h.svc.Transcribe(r.Context(), h.projectID(r), video, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, "transcribe", err)
		return
	}
	h.log.Info("transcript merged",
		slog.String("project_id", string(p.ID)),
		slog.Int("subtitles", len(p.Subtitles)))
	if h.metrics != nil {
		h.metrics.IncTranscriptions()
	}
	h.writeJSON(w, http.StatusOK, p)
}

// Stats handles GET /projects/{project_id}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(h.projectID(r))
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// SequenceJSON handles GET /projects/{project_id}/streams/{stream_id}/sequence.json.
func (h *Handler) SequenceJSON(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.SequenceJSONArtifact(h.projectID(r), h.streamID(r))
	if err != nil {
		h.writeError(w, "sequence json", err)
		return
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SequenceCSV handles GET /projects/{project_id}/streams/{stream_id}/sequence.csv.
func (h *Handler) SequenceCSV(w http.ResponseWriter, r *http.Request) {
	csv, err := h.svc.SequenceCSVArtifact(h.projectID(r), h.streamID(r))
	if err != nil {
		h.writeError(w, "sequence csv", err)
		return
	}
	w.Header().Set("Content-Type", csvContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}

// Report handles GET /projects/{project_id}/report.html.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Report(h.projectID(r))
	if err != nil {
		h.writeError(w, "report", err)
		return
	}
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// ExportPackage handles POST /projects/{project_id}/export. An optional
// request body carries the original video bytes to include in the package.
func (h *Handler) ExportPackage(w http.ResponseWriter, r *http.Request) {
	video, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	written, err := h.svc.ExportPackage(h.projectID(r), video)
	if err != nil && len(written) == 0 {
		h.writeError(w, "export package", err)
		return
	}
	// Partial failure: report what was written alongside the error.
	resp := struct {
		Written []string `json:"written"`
		Error   string   `json:"error,omitempty"`
	}{Written: written}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusMultiStatus
		h.log.Warn("export partially failed", slog.String("error", err.Error()))
	}
	if h.metrics != nil {
		h.metrics.IncExports()
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) projectID(r *http.Request) ProjectID {
	return ProjectID(chi.URLParam(r, "project_id"))
}

func (h *Handler) streamID(r *http.Request) StreamID {
	return StreamID(chi.URLParam(r, "stream_id"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", slog.String("error", err.Error()))
	}
}

// writeError maps domain sentinel errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound),
		errors.Is(err, ErrStreamNotFound),
		errors.Is(err, ErrSegmentNotFound),
		errors.Is(err, ErrSubtitleNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrStreamLocked),
		errors.Is(err, ErrLastStream),
		errors.Is(err, ErrNothingToUndo),
		errors.Is(err, ErrNothingToRedo):
		h.log.Info(op+" rejected", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, ErrInvalidInterval):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, ErrNoTranscriber):
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		h.log.Error(op+" failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

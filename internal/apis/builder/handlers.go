package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"surveylogic/internal/components/assert"
	"surveylogic/internal/components/telemetry"
	"surveylogic/internal/logic"
	"surveylogic/internal/survey"
	"surveylogic/internal/survey/sheet"

	"github.com/go-chi/chi/v5"
)

const (
	report_handler_upload = "handler.upload"
	report_handler_select = "handler.select"
	report_handler_export = "handler.export"
	report_handler_write  = "handler.write"
	report_sessions_count = "sessions.count"
)

const (
	maxUploadSize = 32 << 20
	uploadField   = "file"
)

// Handler serves the logic builder sessions.
type Handler struct {
	store logic.Store
	tel   telemetry.API
}

func NewHandler(store logic.Store, tel telemetry.API) *Handler {
	assert.NotNil(tel)
	return &Handler{
		store: store,
		tel:   telemetry.NewScopedAPI("builder", tel),
	}
}

type answerView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Selection string `json:"selection"`
	Target    string `json:"target"`
}

type questionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Label   string       `json:"label"`
	Answers []answerView `json:"answers"`
}

type sessionView struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	Options   []string       `json:"options"`
	Questions []questionView `json:"questions"`
}

func viewSession(id string, s *logic.Session) sessionView {
	snapshot := s.Snapshot()
	view := sessionView{
		ID:        id,
		State:     snapshot.State.String(),
		Options:   snapshot.Options,
		Questions: []questionView{},
	}
	if view.Options == nil {
		view.Options = []string{}
	}
	if snapshot.State == logic.StateEmpty {
		return view
	}

	mapping := snapshot.Mapping()
	for _, q := range snapshot.Document.Questions {
		qv := questionView{
			ID:      q.ID,
			Text:    q.Text,
			Label:   q.Label(),
			Answers: []answerView{},
		}
		for _, a := range q.Answers {
			qv.Answers = append(qv.Answers, answerView{
				ID:        a.ID,
				Text:      a.Text,
				Selection: snapshot.Selections[a.ID],
				Target:    mapping.Target(a.ID).String(),
			})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.tel.ReportWarning(report_handler_write, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *logic.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	s, ok := h.store.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return id, nil, false
	}
	return id, s, true
}

// readUpload parses the uploaded survey structure of a multipart request,
// ok is false when the request carries no file.
func (h *Handler) readUpload(r *http.Request) (doc survey.Document, ok bool, err error) {
	err = r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return survey.Document{}, false, nil
	}
	if err != nil {
		return survey.Document{}, false, fmt.Errorf("%w: %w", sheet.ErrInputFormat, err)
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return survey.Document{}, false, nil
	}
	if err != nil {
		return survey.Document{}, false, fmt.Errorf("%w: %w", sheet.ErrInputFormat, err)
	}
	defer file.Close()

	format, err := sheet.FormatFromName(header.Filename)
	if err != nil {
		return survey.Document{}, true, err
	}
	rows, err := sheet.ReadRows(file, format)
	if err != nil {
		return survey.Document{}, true, err
	}
	doc, err = survey.Parse(rows)
	if err != nil {
		return survey.Document{}, true, err
	}

	h.tel.ReportDebug(report_handler_upload, header.Filename, len(doc.Questions))
	return doc, true, nil
}

// Create makes a new session, loading the uploaded file right away if there is one.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	doc, uploaded, err := h.readUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	id, s := h.store.Create()
	if uploaded {
		s.Load(doc)
	}
	h.tel.ReportCount(report_sessions_count, int64(h.store.Len()))

	h.writeJSON(w, http.StatusCreated, viewSession(id, s))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, viewSession(id, s))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if !h.store.Delete(id) {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload replaces the session's document with the uploaded file.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	doc, uploaded, err := h.readUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !uploaded {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: missing %q file field", sheet.ErrInputFormat, uploadField))
		return
	}

	s.Load(doc)
	h.writeJSON(w, http.StatusOK, viewSession(id, s))
}

// Reset drops the document so another one can be imported.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	h.writeJSON(w, http.StatusOK, viewSession(id, s))
}

type selectRequest struct {
	Option string `json:"option"`
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req selectRequest
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	answerId := chi.URLParam(r, "answerId")
	err = s.Select(answerId, req.Option)
	switch {
	case errors.Is(err, logic.ErrNoDocument):
		h.writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		h.tel.ReportDebug(report_handler_select, answerId, req.Option, err)
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.writeJSON(w, http.StatusOK, viewSession(id, s))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, download bool) {
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}

	text, err := s.Export()
	if err != nil {
		h.writeError(w, http.StatusConflict, err)
		return
	}

	w.Header().Set("Content-Type", logic.ExportContentType)
	if download {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", logic.ExportFileName))
	}
	w.WriteHeader(http.StatusOK)
	_, err = io.WriteString(w, text)
	if err != nil {
		h.tel.ReportWarning(report_handler_export, err)
	}
}

// Export shows the rules inline.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, false)
}

// Download serves the rules as survey_logic.txt.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, true)
}

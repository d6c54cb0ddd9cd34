package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/export"
	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

const defaultPreviewRows = 5

func sessionName(r *http.Request) string { return chi.URLParam(r, "name") }

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createSessionRequest struct {
	Name string `json:"name"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.app.CreateSession(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Store.Get(r.Context(), sessionName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Store.Delete(r.Context(), sessionName(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	Dataset session.Dataset `json:"dataset"`
	Preview string          `json:"preview"`
}

// uploadDataset accepts multipart field "file" plus optional "parse_dates"
// (comma separated) and "max_rows" form values.
func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()

	opt := app.UploadOptions{Filename: hdr.Filename, ParseDates: splitList(r.FormValue("parse_dates"))}
	if v := r.FormValue("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, errs.Newf(errs.ErrKindInvalidInput, "invalid max_rows %q", v))
			return
		}
		opt.MaxRows = n
	}
	res, err := s.app.UploadReader(r.Context(), sessionName(r), file, opt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Dataset: res.Dataset, Preview: res.Table.Head(defaultPreviewRows)})
}

type generateRequest struct {
	Dataset   string   `json:"dataset"`
	Objective string   `json:"objective"`
	Focus     []string `json:"focus"`
}

func (g generateRequest) options() app.GenerateOptions {
	return app.GenerateOptions{Dataset: g.Dataset, Objective: g.Objective, Focus: g.Focus}
}

func (s *Server) questions(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.app.GenerateQuestions(r.Context(), sessionName(r), req.options())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type explainRequest struct {
	Dataset string `json:"dataset"`
	Column  string `json:"column"`
}

type explainResponse struct {
	Column string `json:"column"`
	Text   string `json:"text"`
	Model  string `json:"model"`
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.app.ExplainColumn(r.Context(), sessionName(r), req.Dataset, req.Column)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Column: req.Column, Text: c.Text, Model: c.Model})
}

type followUpRequest struct {
	Dataset  string `json:"dataset"`
	Question string `json:"question"`
	Pick     int    `json:"pick"`
}

type followUpResponse struct {
	Question string                 `json:"question"`
	Entry    *session.FollowUpEntry `json:"entry"`
}

func (s *Server) followUps(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, entry, err := s.app.GenerateFollowUps(r.Context(), sessionName(r), app.FollowUpOptions{
		Dataset: req.Dataset, Question: req.Question, Pick: req.Pick,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, followUpResponse{Question: q, Entry: entry})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.app.GenerateReport(r.Context(), sessionName(r), req.options())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// export serves a rendered document as an attachment; format is md (default)
// or html.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	doc, err := s.app.Export(r.Context(), sessionName(r), chi.URLParam(r, "kind"), r.URL.Query().Get("dataset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, body, ctype := doc.Name, doc.Markdown, "text/markdown; charset=utf-8"
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "md", "markdown":
	case "html":
		html, err := doc.HTML()
		if err != nil {
			writeError(w, r, err)
			return
		}
		name, body, ctype = export.WithExt(name, ".html"), html, "text/html; charset=utf-8"
	default:
		writeError(w, r, errs.Newf(errs.ErrKindInvalidInput, "unknown format %q (md, html)", r.URL.Query().Get("format")))
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

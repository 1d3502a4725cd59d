package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/store"
)

const defaultListLimit = 100

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Tag:   strings.TrimSpace(q.Get("tag")),
		Query: strings.TrimSpace(q.Get("q")),
		Limit: defaultListLimit,
	}
	if raw := q.Get("type"); raw != "" {
		t, err := item.ParseType(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Type = t
	}
	var ok bool
	if f.Limit, ok = s.intParam(w, q.Get("limit"), "limit", f.Limit); !ok {
		return
	}
	if f.Offset, ok = s.intParam(w, q.Get("offset"), "offset", 0); !ok {
		return
	}

	items, err := s.svc.List(r.Context(), f)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if items == nil {
		items = []*item.ClipboardItem{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) intParam(w http.ResponseWriter, raw, name string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

type addItemRequest struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Tags     []string       `json:"tags"`
	Metadata *item.Metadata `json:"metadata"`
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	var t item.Type
	if strings.TrimSpace(req.Type) != "" {
		parsed, err := item.ParseType(req.Type)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		t = parsed
	}
	it, err := s.svc.Add(r.Context(), library.AddRequest{
		Type:     t,
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, it)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, it)
}

type updateItemRequest struct {
	Content *string `json:"content"`
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Content == nil {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	it, err := s.svc.UpdateContent(r.Context(), r.PathValue("id"), *req.Content)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

func (s *Server) setTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if !s.decode(w, r, &req) {
		return
	}
	tags, err := s.svc.SetTags(r.Context(), r.PathValue("id"), req.Tags)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	s.writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (s *Server) enrichItem(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Enrich(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type translateItemRequest struct {
	TargetLanguage string `json:"targetLanguage"`
}

func (s *Server) translateItem(w http.ResponseWriter, r *http.Request) {
	var req translateItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		s.writeError(w, http.StatusBadRequest, "targetLanguage is required")
		return
	}
	res, err := s.svc.Translate(r.Context(), r.PathValue("id"), req.TargetLanguage)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type formatItemRequest struct {
	Apply bool `json:"apply"`
}

func (s *Server) formatItem(w http.ResponseWriter, r *http.Request) {
	var req formatItemRequest
	// An empty body means preview only
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Format(r.Context(), r.PathValue("id"), req.Apply)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) copyItem(w http.ResponseWriter, r *http.Request) {
	if s.copier == nil {
		s.writeError(w, http.StatusNotImplemented, "clipboard access is not available")
		return
	}
	it, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.copier.CopyToClipboard(it); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.Tags(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if tags == nil {
		tags = []item.Tag{}
	}
	s.writeJSON(w, http.StatusOK, tags)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.Templates(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if templates == nil {
		templates = []*item.Template{}
	}
	s.writeJSON(w, http.StatusOK, templates)
}

type addTemplateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) addTemplate(w http.ResponseWriter, r *http.Request) {
	var req addTemplateRequest
	if !s.decode(w, r, &req) {
		return
	}
	tpl, err := s.svc.AddTemplate(r.Context(), req.Name, req.Content)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) copyTemplate(w http.ResponseWriter, r *http.Request) {
	if s.copier == nil {
		s.writeError(w, http.StatusNotImplemented, "clipboard access is not available")
		return
	}
	tpl, err := s.svc.Template(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.copier.CopyText(tpl.Content); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ocrRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

func (s *Server) augmentOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Augment().ExtractText(r.Context(), req.Image, req.MimeType))
}

type analyzeRequest struct {
	Code string `json:"code"`
}

func (s *Server) augmentAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Augment().AnalyzeCode(r.Context(), req.Code))
}

type formatRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (s *Server) augmentFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Augment().FormatCode(r.Context(), req.Code, req.Language))
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

func (s *Server) augmentTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Augment().Translate(r.Context(), req.Text, req.TargetLanguage))
}

package app

import "net/http"

func (s *HTTPServer) handleListComments(w http.ResponseWriter, r *http.Request, slug string) {
	forest, err := s.service.ListComments(r.Context(), slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": forest})
}

func (s *HTTPServer) handleCreateComment(w http.ResponseWriter, r *http.Request, slug string) {
	session, ok := s.optionalSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parentId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	comment, err := s.service.CreateComment(r.Context(), session, slug, body.Content, body.ParentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

func (s *HTTPServer) handleEditComment(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := s.optionalSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	comment, err := s.service.EditComment(r.Context(), session, id, body.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

func (s *HTTPServer) handleDeleteComment(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := s.optionalSession(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteComment(r.Context(), session, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handlePinComment(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := s.optionalSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Pinned *bool `json:"pinned"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Pinned == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "pinned is required", nil)
		return
	}
	comment, err := s.service.PinComment(r.Context(), session, id, *body.Pinned)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

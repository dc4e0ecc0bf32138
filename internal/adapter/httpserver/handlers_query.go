package httpserver

import (
	"net/http"
)

type queryRequest struct {
	Profile   string `json:"profile"`
	SQL       string `json:"sql" validate:"required_without=Selection"`
	Selection string `json:"selection"`
}

type completeRequest struct {
	Profile string `json:"profile"`
	Text    string `json:"text"`
	Caret   int    `json:"caret" validate:"gte=0"`
}

type highlightRequest struct {
	Text string `json:"text"`
}

// QueryHandler runs console SQL. A non-empty selection wins over sql.
func (s *Server) QueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Query.Execute(r.Context(), req.Profile, req.SQL, req.Selection)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// CompleteHandler returns completion candidates for the word at caret.
func (s *Server) CompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completeRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := s.Query.Complete(r.Context(), req.Profile, req.Text, req.Caret)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// HighlightHandler returns the token spans of text.
func (s *Server) HighlightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req highlightRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"spans": s.Query.Highlight(req.Text)})
	}
}

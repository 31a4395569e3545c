package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/matching"
	"github.com/spigell/shift-swap/internal/shift"
	"github.com/spigell/shift-swap/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type handler struct {
	service Service
	logger  *zap.Logger
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type matchRequest struct {
	RequestID string `json:"requestId"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type statusRequest struct {
	Status shift.Status `json:"status"`
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in shift.PostInput
	if !h.decode(w, r, &in) {
		return
	}
	post, err := h.service.CreatePost(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListOpenPosts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if posts == nil {
		posts = []shift.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *handler) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.ListMatches(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if matches == nil {
		matches = []shift.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *handler) suggestSwap(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}
	suggestion, err := h.service.SuggestSwap(r.Context(), req.RequestID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (h *handler) parseChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.ParseChat(r.Context(), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) intelligentMatch(w http.ResponseWriter, r *http.Request) {
	var req matching.IntelligentRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.IntelligentMatch(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All posts and matches cleared"})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Message: err.Error()})
	return false
}

// fail maps err to a status code. Internal details are only logged.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, matching.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request", Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Post not found"})
	case errors.Is(err, store.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Invalid status transition", Message: err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

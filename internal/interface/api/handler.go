package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/usecase"
	"jetlag-mailcast/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Submitter runs the submission flow for one recipient
type Submitter interface {
	Submit(ctx context.Context, recipient string) (*usecase.SubmissionResult, error)
}

// Dispatcher runs one claim cycle
type Dispatcher interface {
	RunOnce(ctx context.Context) (usecase.DispatchResult, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the submission and dispatch endpoints
type Handler struct {
	submitter     Submitter
	dispatcher    Dispatcher
	health        HealthChecker
	validate      *validator.Validate
	dispatchToken string
	logger        logger.Logger
}

// NewHandler creates a new HTTP handler. An empty dispatchToken leaves the
// dispatch trigger unauthenticated.
func NewHandler(submitter Submitter, dispatcher Dispatcher, health HealthChecker, dispatchToken string, logger logger.Logger) *Handler {
	return &Handler{
		submitter:     submitter,
		dispatcher:    dispatcher,
		health:        health,
		validate:      validator.New(),
		dispatchToken: dispatchToken,
		logger:        logger,
	}
}

// Submit handles POST /api/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req entity.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("Rejected submission body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	result, err := h.submitter.Submit(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, usecase.ErrBoardingPassNotSent) {
			writeError(w, http.StatusBadGateway, "Could not send boarding pass")
			return
		}
		h.logger.Error("Submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, result.Response())
}

// Dispatch handles POST /api/dispatch
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedDispatch(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.dispatcher.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("Triggered dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result.Response())
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Unhealthy"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Healthy"))
}

// MethodNotAllowed answers requests using an unsupported method
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// NotFound answers requests for unknown paths
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (h *Handler) authorizedDispatch(r *http.Request) bool {
	if h.dispatchToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.dispatchToken)) == 1
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type SubmissionHandler struct {
	svc *service.SubmissionService
	log *zap.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: log}
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	result, err := h.svc.Submit(r.Context(), chi.URLParam(r, "token"), body)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to submit form")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *SubmissionHandler) ListByForm(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListByForm(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to retrieve submissions")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

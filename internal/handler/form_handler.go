package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type FormHandler struct {
	svc *service.FormService
	log *zap.Logger
}

func NewFormHandler(svc *service.FormService, log *zap.Logger) *FormHandler {
	return &FormHandler{svc: svc, log: log}
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to retrieve forms")
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	result, err := h.svc.Create(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create form")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *FormHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to retrieve form")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

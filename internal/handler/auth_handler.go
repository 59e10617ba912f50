package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
	log *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	result, err := h.svc.Login(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.log, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	tok, _ := auth.BearerToken(r)
	result, err := h.svc.Verify(tok)
	if err != nil {
		writeServiceError(w, h.log, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/shoporder/internal/auth"
)

type AuthHandler struct {
	Service *auth.Service
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
}

func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Post("/auth/me", h.me)
	r.Post("/auth/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, token, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": tokenResp{AccessToken: token, TokenType: "bearer"},
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := h.Service.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, tokenResp{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.Me(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), auth.Token(r.Context())); err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"message": "successfully logged out"})
}

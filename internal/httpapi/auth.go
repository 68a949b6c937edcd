package httpapi

import (
	"net/http"
	"strings"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/middleware"
	"github.com/mateforge/mateauth/users"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req mateauth.RegisterRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	u, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, users.Profile{ID: u.ID, Username: u.Username, Bio: u.Bio})
}

// handleLogin accepts an OAuth2 password form; username carries the email.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if strings.TrimSpace(email) == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	pair, err := h.engine.Login(r.Context(), email, password, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	pair, err := h.engine.Refresh(r.Context(), token, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "token is required")
		return
	}
	if err := h.engine.VerifyEmail(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Email successfully verified"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	token, ok := h.refreshToken(w, r)
	if !ok {
		return
	}
	if err := h.engine.Logout(r.Context(), token, caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Logged out successfully"})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	if err := h.engine.LogoutAll(r.Context(), caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Logged out from all devices"})
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return "", false
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "refresh_token is required")
		return "", false
	}
	return token, true
}

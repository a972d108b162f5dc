package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

// AuthHandler handles login, logout and the verification probe.
type AuthHandler struct {
	kiosk          *kiosk.Service
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *kiosk.Service, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		kiosk:          svc,
		sessionManager: sm,
	}
}

// LoginPage renders the login form. An already authenticated browser is
// redirected to its view instead of re-verifying.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		if session.IsAdmin() {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, "login.html", nil)
}

// Login handles the login form submission. On a face match it binds the
// session to the identity; every other outcome leaves the browser
// anonymous.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	image := r.PostFormValue("image")

	outcome, err := h.kiosk.Login(r.Context(), username, image)
	if err != nil {
		if errors.Is(err, kiosk.ErrEmptyUsername) {
			respondError(w, http.StatusBadRequest, "username is required")
			return
		}
		log.Printf("login failed for %q: %v", sanitizeForLog(username), err)
		respondError(w, http.StatusInternalServerError, "verification unavailable")
		return
	}

	if outcome.IsMatch {
		session, err := h.sessionManager.CreateSession(outcome.Identity.ID, string(outcome.Identity.Role))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		h.sessionManager.SetSessionCookie(w, session)
	}

	respondJSON(w, http.StatusOK, outcome)
}

// CheckFace handles the verification probe. Same outcome flags as
// login, no session effect.
func (h *AuthHandler) CheckFace(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	outcome, err := h.kiosk.CheckFace(r.Context(), r.PostFormValue("username"), r.PostFormValue("image"))
	if err != nil {
		if errors.Is(err, kiosk.ErrEmptyUsername) {
			respondError(w, http.StatusBadRequest, "username is required")
			return
		}
		respondError(w, http.StatusInternalServerError, "verification unavailable")
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

// Logout clears the session. Idempotent when already anonymous.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

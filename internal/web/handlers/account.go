package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

// AccountHandler serves the authenticated guest view and self-deletion.
type AccountHandler struct {
	kiosk          *kiosk.Service
	sessionManager *middleware.SessionManager
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc *kiosk.Service, sm *middleware.SessionManager) *AccountHandler {
	return &AccountHandler{
		kiosk:          svc,
		sessionManager: sm,
	}
}

// Home renders the authenticated view of the caller's own profile.
// A session pointing at a deleted identity is cleared, not served.
func (h *AccountHandler) Home(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	identity, err := h.kiosk.Profile(r.Context(), session.IdentityID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			h.sessionManager.DeleteSession(session.ID)
			h.sessionManager.ClearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		log.Printf("profile lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "profile unavailable")
		return
	}

	if session.IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	renderPage(w, "home.html", identity)
}

// SelfDelete removes the caller's own account and clears the session.
// A second submission is a no-op, not an error.
func (h *AccountHandler) SelfDelete(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	if err := h.kiosk.SelfDelete(r.Context(), session.IdentityID); err != nil {
		log.Printf("self delete failed: %v", err)
		respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}

	h.sessionManager.DeleteIdentitySessions(session.IdentityID)
	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-kiosk/internal/faceid"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

const defaultIdentifyLimit = 5

// AdminHandler serves the admin view, admin-side deletion and the 1:N
// face lookup.
type AdminHandler struct {
	kiosk          *kiosk.Service
	sessionManager *middleware.SessionManager
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *kiosk.Service, sm *middleware.SessionManager) *AdminHandler {
	return &AdminHandler{
		kiosk:          svc,
		sessionManager: sm,
	}
}

// AdminPage lists every identity except the acting admin's own record.
func (h *AdminHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	identities, err := h.kiosk.ListOthers(r.Context(), session.IdentityID)
	if err != nil {
		log.Printf("admin listing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "listing unavailable")
		return
	}

	renderPage(w, "admin.html", map[string]any{
		"Identities": identities,
	})
}

// AdminDelete removes the target identity unconditionally. The acting
// admin's own session survives; the target's sessions do not.
func (h *AdminHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	deletedID, err := h.kiosk.AdminDelete(r.Context(), username)
	if err != nil {
		if errors.Is(err, kiosk.ErrEmptyUsername) {
			respondError(w, http.StatusBadRequest, "username is required")
			return
		}
		log.Printf("admin delete of %q failed: %v", sanitizeForLog(username), err)
		respondError(w, http.StatusInternalServerError, "deletion failed")
		return
	}

	if deletedID != "" {
		h.sessionManager.DeleteIdentitySessions(deletedID)
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Identify runs a 1:N lookup of a probe image against the enrolled
// identities and returns the nearest matches.
func (h *AdminHandler) Identify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	limit := defaultIdentifyLimit
	if v := r.PostFormValue("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	matches, err := h.kiosk.Identify(r.Context(), r.PostFormValue("image"), limit)
	if err != nil {
		if errors.Is(err, faceid.ErrNoFace) {
			respondJSON(w, http.StatusOK, map[string]bool{"no_face": true})
			return
		}
		log.Printf("identify failed: %v", err)
		respondError(w, http.StatusInternalServerError, "identification unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
	})
}

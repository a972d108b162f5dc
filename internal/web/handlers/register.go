package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
)

// RegisterHandler handles enrollment of new identities.
type RegisterHandler struct {
	kiosk        *kiosk.Service
	installation config.InstallationProfile
}

// NewRegisterHandler creates a new registration handler.
func NewRegisterHandler(svc *kiosk.Service, installation config.InstallationProfile) *RegisterHandler {
	return &RegisterHandler{
		kiosk:        svc,
		installation: installation,
	}
}

// RegisterPage renders the registration form with the fields the
// installation profile enables.
func (h *RegisterHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, "register.html", map[string]any{
		"Fields": h.installation.Fields,
	})
}

// Register handles the registration form submission. Registration never
// authenticates the caller.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	image := r.PostFormValue("image")
	profile := parseProfileForm(r, h.installation)

	outcome, err := h.kiosk.Register(r.Context(), username, image, profile)
	if err != nil {
		if errors.Is(err, kiosk.ErrEmptyUsername) {
			respondError(w, http.StatusBadRequest, "username is required")
			return
		}
		log.Printf("registration failed for %q: %v", sanitizeForLog(username), err)
		respondError(w, http.StatusInternalServerError, "registration unavailable")
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

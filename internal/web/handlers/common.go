// Package handlers implements the HTTP surface of the kiosk. Handlers
// own status codes and redirects; the outcome flags in JSON responses
// come straight from the kiosk service.
package handlers

import (
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/directory"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// renderPage renders an embedded HTML template.
func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
	}
}

// parseProfileForm extracts the enrollment fields the installation
// profile enables. Unknown or disabled fields are ignored.
func parseProfileForm(r *http.Request, installation config.InstallationProfile) directory.Profile {
	var profile directory.Profile
	field := func(name string) string {
		if !installation.HasField(name) {
			return ""
		}
		return strings.TrimSpace(r.PostFormValue(name))
	}

	profile.FirstName = field("first_name")
	profile.LastName = field("last_name")
	profile.DateOfBirth = field("date_of_birth")
	profile.PassportNumber = field("passport_number")
	profile.HotelName = field("hotel_name")
	profile.RoomNumber = field("room_number")
	profile.CheckIn = parseDate(field("check_in"))
	profile.CheckOut = parseDate(field("check_out"))
	return profile
}

// parseDate parses a YYYY-MM-DD form value, nil when absent or invalid.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

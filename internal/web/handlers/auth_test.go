package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
)

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(kiosk.Options{Roles: true})
	env.seedIdentity("alice", directory.RoleGuest)
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/login", url.Values{
		"username": {"alice"},
		"image":    {testDataURI(t)},
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var outcome kiosk.LoginOutcome
	decodeJSON(t, rec, &outcome)
	if !outcome.IsMatch {
		t.Error("Expected is_match true")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected session cookie to be set")
	}
	if cookies[0].Value == "" {
		t.Error("Expected non-empty session cookie")
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/login", url.Values{
		"username": {"ghost"},
		"image":    {testDataURI(t)},
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	var outcome kiosk.LoginOutcome
	decodeJSON(t, rec, &outcome)
	if !outcome.UserNotFound {
		t.Error("Expected user_not_found true")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("No session cookie expected")
	}
}

func TestLogin_NoFace(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	env.seedIdentity("alice", directory.RoleGuest)
	env.engine.detectResult = false
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/login", url.Values{
		"username": {"alice"},
		"image":    {testDataURI(t)},
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	var outcome kiosk.LoginOutcome
	decodeJSON(t, rec, &outcome)
	if !outcome.NoFace {
		t.Error("Expected no_face true")
	}
}

func TestLogin_Mismatch(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	env.seedIdentity("alice", directory.RoleGuest)
	env.engine.verifyResult = false
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/login", url.Values{
		"username": {"alice"},
		"image":    {testDataURI(t)},
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	var outcome kiosk.LoginOutcome
	decodeJSON(t, rec, &outcome)
	if outcome.IsMatch {
		t.Error("Expected is_match false")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("No session cookie expected on mismatch")
	}
}

func TestLogin_MissingUsername(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/login", url.Values{"image": {testDataURI(t)}})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestCheckFace(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	env.seedIdentity("alice", directory.RoleGuest)
	handler := NewAuthHandler(env.service, env.sm)

	req := postForm(t, "/check_face", url.Values{
		"username": {"alice"},
		"image":    {testDataURI(t)},
	})
	rec := httptest.NewRecorder()
	handler.CheckFace(rec, req)

	var outcome kiosk.LoginOutcome
	decodeJSON(t, rec, &outcome)
	if !outcome.IsMatch {
		t.Error("Expected is_match true")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("CheckFace must not create a session")
	}
}

func TestLoginPage_RedirectsWhenAuthenticated(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	handler := NewAuthHandler(env.service, env.sm)

	session, err := env.sm.CreateSession("some-id", "guest")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Build a request carrying the signed cookie.
	setRec := httptest.NewRecorder()
	env.sm.SetSessionCookie(setRec, session)
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Cookie", setRec.Header().Get("Set-Cookie"))

	rec := httptest.NewRecorder()
	handler.LoginPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got %s", loc)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(kiosk.Options{})
	handler := NewAuthHandler(env.service, env.sm)

	session, _ := env.sm.CreateSession("some-id", "guest")
	setRec := httptest.NewRecorder()
	env.sm.SetSessionCookie(setRec, session)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Cookie", setRec.Header().Get("Set-Cookie"))
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %d", rec.Code)
	}
	if env.sm.GetSession(session.ID) != nil {
		t.Error("Expected session to be deleted")
	}

	// Logout while anonymous is idempotent.
	rec = httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Expected redirect for anonymous logout, got %d", rec.Code)
	}
}

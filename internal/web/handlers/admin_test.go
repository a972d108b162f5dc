package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

func TestAdminPage_ExcludesOwnRecord(t *testing.T) {
	env := newTestEnv(kiosk.Options{Roles: true})
	admin := env.seedIdentity("boss", directory.RoleAdmin)
	env.seedIdentity("alice", directory.RoleGuest)
	env.seedIdentity("bob", directory.RoleGuest)
	handler := NewAdminHandler(env.service, env.sm)

	session := &middleware.Session{ID: "s1", IdentityID: admin.ID, Role: "admin"}
	req := withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), session)
	rec := httptest.NewRecorder()
	handler.AdminPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "alice") || !strings.Contains(body, "bob") {
		t.Error("Expected guest records in the listing")
	}
	if strings.Contains(body, "boss") {
		t.Error("Admin's own record must not be listed")
	}
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(kiosk.Options{Roles: true})
	admin := env.seedIdentity("boss", directory.RoleAdmin)
	target := env.seedIdentity("alice", directory.RoleGuest)
	handler := NewAdminHandler(env.service, env.sm)

	adminSession, _ := env.sm.CreateSession(admin.ID, "admin")
	targetSession, _ := env.sm.CreateSession(target.ID, "guest")

	req := withSession(postForm(t, "/admin/account/delete", url.Values{"username": {"alice"}}), adminSession)
	rec := httptest.NewRecorder()
	handler.AdminDelete(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %d", rec.Code)
	}

	count, _ := env.store.Count(context.Background())
	if count != 1 {
		t.Errorf("Expected only the admin record left, got %d", count)
	}
	if env.sm.GetSession(targetSession.ID) != nil {
		t.Error("Expected target's session to be invalidated")
	}
	if env.sm.GetSession(adminSession.ID) == nil {
		t.Error("Admin's own session must survive")
	}
}

func TestAdminDelete_MissingTarget(t *testing.T) {
	env := newTestEnv(kiosk.Options{Roles: true})
	admin := env.seedIdentity("boss", directory.RoleAdmin)
	handler := NewAdminHandler(env.service, env.sm)

	session, _ := env.sm.CreateSession(admin.ID, "admin")
	req := withSession(postForm(t, "/admin/account/delete", url.Values{"username": {"ghost"}}), session)
	rec := httptest.NewRecorder()
	handler.AdminDelete(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("Deleting a missing user should redirect, got %d", rec.Code)
	}
}

func TestIdentify_NoIndex(t *testing.T) {
	env := newTestEnv(kiosk.Options{Roles: true})
	handler := NewAdminHandler(env.service, env.sm)

	req := postForm(t, "/admin/identify", url.Values{"image": {testDataURI(t)}})
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 without an index, got %d", rec.Code)
	}
}

func TestIdentify(t *testing.T) {
	store := directoryStoreWithIndex(t)
	handler := NewAdminHandler(store.service, store.sm)

	req := postForm(t, "/admin/identify", url.Values{"image": {testDataURI(t)}})
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Matches []directory.IndexMatch `json:"matches"`
	}
	decodeJSON(t, rec, &resp)
	if len(resp.Matches) == 0 {
		t.Fatal("Expected at least one match")
	}
	if resp.Matches[0].Username != "alice" {
		t.Errorf("Expected alice as nearest match, got %s", resp.Matches[0].Username)
	}
}

// directoryStoreWithIndex builds a test env whose service carries a
// populated face index.
func directoryStoreWithIndex(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(kiosk.Options{Roles: true})
	identity := env.seedIdentity("alice", directory.RoleGuest)
	identity.ReferenceEmbedding = []float32{1, 0, 0}

	index := directory.NewFaceIndex()
	index.Add(&identity)

	env.service = kiosk.NewService(env.store, env.engine, nil, index, kiosk.Options{Roles: true})
	return env
}

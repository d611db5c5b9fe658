package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/config"
	"github.com/iliyamo/clinic-queue/internal/handler"
	"github.com/iliyamo/clinic-queue/internal/lock"
	"github.com/iliyamo/clinic-queue/internal/repository"
	"github.com/iliyamo/clinic-queue/internal/service"
)

const jwtSecret = "router-test-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := zap.NewNop()
	store := repository.NewMemoryStore()
	auth := service.NewAuthService(store, jwtSecret, 15, 4, log)
	if err := auth.EnsureAdmin(context.Background(), "admin@clinic.test", "admin-password"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	reg := service.NewRegistry(store, log)
	query := service.NewQueryService(reg, store)
	bookings := service.NewBookingService(store, lock.NewLocal(),
		config.BookingConfig{LockWait: time.Second, MaxTokensPerBooking: 3}, nil, log)

	e := echo.New()
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(auth, log), jwtSecret)
	sessions := handler.NewSessionHandler(reg, query, log)
	RegisterPublic(e, sessions)
	RegisterAdmin(e, sessions, jwtSecret)
	RegisterPatient(e, handler.NewBookingHandler(bookings, query, log), jwtSecret)
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec, out := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body)
	}
	return out["access"].(map[string]any)["token"].(string)
}

func (a *api) patient(email string) string {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": email, "password": "patient-pass", "role": "ADMIN"})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body)
	}
	return a.login(email, "patient-pass")
}

func (a *api) createSession(admin string, capacity int) string {
	a.t.Helper()
	rec, out := a.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{
		"provider_name": "Dr. Sarah Bennett",
		"specialty":     "Cardiologist",
		"start_time":    "2026-10-20T09:00:00Z",
		"capacity":      capacity,
		"fee":           150,
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create session: %d %s", rec.Code, rec.Body)
	}
	return out["id"].(string)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@clinic.test", "admin-password")
	alice := a.patient("alice@example.com")
	bob := a.patient("bob@example.com")
	id := a.createSession(admin, 3)

	rec, out := a.do(http.MethodPost, "/v1/sessions/"+id+"/bookings", alice, map[string]any{"tokens": []any{1, "2"}})
	if rec.Code != http.StatusCreated || out["success"] != true {
		t.Fatalf("commit: %d %s", rec.Code, rec.Body)
	}

	rec, out = a.do(http.MethodPost, "/v1/sessions/"+id+"/bookings", bob, map[string]any{"tokens": []int{2, 3}})
	if rec.Code != http.StatusConflict || out["refresh"] != true {
		t.Fatalf("conflict: %d %s", rec.Code, rec.Body)
	}
	if taken, _ := out["taken"].([]any); len(taken) != 2 {
		t.Fatalf("conflict should list taken tokens: %s", rec.Body)
	}

	rec, out = a.do(http.MethodGet, "/v1/sessions/"+id+"/availability", "", nil)
	if rec.Code != http.StatusOK || out["available"].(float64) != 1 || out["full"] != false {
		t.Fatalf("availability: %d %s", rec.Code, rec.Body)
	}

	rec, _ = a.do(http.MethodGet, "/v1/sessions/"+id, "", nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "patient_id") {
		t.Fatalf("public session leaks patients: %d %s", rec.Code, rec.Body)
	}
	rec, _ = a.do(http.MethodGet, "/v1/admin/sessions/"+id, admin, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "patient_id") {
		t.Fatalf("admin session view: %d %s", rec.Code, rec.Body)
	}

	rec, _ = a.do(http.MethodGet, "/v1/my-bookings", alice, nil)
	var mine []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil || len(mine) != 1 {
		t.Fatalf("my bookings: %d %s", rec.Code, rec.Body)
	}
}

func TestBookingErrors(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@clinic.test", "admin-password")
	alice := a.patient("alice@example.com")
	id := a.createSession(admin, 5)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown session", "/v1/sessions/missing/bookings", map[string]any{"tokens": []int{1}}, http.StatusNotFound},
		{"out of range", "/v1/sessions/" + id + "/bookings", map[string]any{"tokens": []int{9}}, http.StatusBadRequest},
		{"too many", "/v1/sessions/" + id + "/bookings", map[string]any{"tokens": []int{1, 2, 3, 4}}, http.StatusBadRequest},
		{"empty", "/v1/sessions/" + id + "/bookings", map[string]any{"tokens": []int{}}, http.StatusBadRequest},
		{"not a number", "/v1/sessions/" + id + "/bookings", map[string]any{"tokens": []string{"A1"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := a.do(http.MethodPost, tc.path, alice, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.status, rec.Body)
			}
		})
	}
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@clinic.test", "admin-password")
	alice := a.patient("alice@example.com")

	rec, _ := a.do(http.MethodPost, "/v1/admin/sessions", alice, map[string]any{"provider_name": "x"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient creating session: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/v1/admin/sessions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous admin list: %d", rec.Code)
	}
	id := a.createSession(admin, 2)
	rec, _ = a.do(http.MethodPost, "/v1/sessions/"+id+"/bookings", admin, map[string]any{"tokens": []int{1}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin booking: %d", rec.Code)
	}

	rec, out := a.do(http.MethodGet, "/v1/me", alice, nil)
	if rec.Code != http.StatusOK || out["role"] != "PATIENT" || out["email"] != "alice@example.com" {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@clinic.test", "admin-password")
	rec, out := a.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{
		"provider_name": "Dr. Emily Chen",
		"specialty":     "Pediatrician",
		"start_time":    "2026-10-20T09:00:00Z",
		"capacity":      0,
		"fee":           80,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	fields, _ := out["fields"].(map[string]any)
	if _, ok := fields["capacity"]; !ok {
		t.Fatalf("expected capacity field error: %s", rec.Body)
	}
	rec, _ = a.do(http.MethodGet, "/v1/sessions", "", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("invalid session persisted: %s", rec.Body)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/config"
	"github.com/iliyamo/clinic-queue/internal/utils"
)

const secret = "mw-secret"

func protected(e *echo.Echo, roles ...string) {
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
	}
	g := e.Group("", JWTAuth(secret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/p", h)
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	protected(e)

	if rec := call(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}
	if rec := call(e, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", rec.Code)
	}
	at, _ := utils.NewAccessToken(secret, "u-1", "PATIENT", 5)
	rec := call(e, at.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status %d body %s", rec.Code, rec.Body)
	}
	if body := rec.Body.String(); body != `{"role":"PATIENT","user_id":"u-1"}`+"\n" {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	protected(e, "ADMIN")

	patient, _ := utils.NewAccessToken(secret, "u-1", "PATIENT", 5)
	if rec := call(e, patient.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("patient on admin route: status %d", rec.Code)
	}
	admin, _ := utils.NewAccessToken(secret, "u-2", "ADMIN", 5)
	if rec := call(e, admin.Token); rec.Code != http.StatusOK {
		t.Fatalf("admin: status %d", rec.Code)
	}
}

func TestNewTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zap.NewNop()))
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		if rec := call(e, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sessions/:id/bookings")
	c.Set(CtxUserID, "u-9")

	cases := map[string]string{
		"ip":      "rl:ip:10.0.0.7",
		"user":    "rl:user:u-9",
		"ip_user": "rl:ip:10.0.0.7:user:u-9",
		"":        "rl:ip:10.0.0.7:user:u-9:route:POST /v1/sessions/:id/bookings",
	}
	for strategy, want := range cases {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("strategy %q: got %q, want %q", strategy, got, want)
		}
	}
}

func TestParseBucketResult(t *testing.T) {
	allowed, remaining, retry, ok := parseBucketResult([]interface{}{int64(0), int64(0), int64(750)})
	if !ok || allowed || remaining != 0 || retry != 750 {
		t.Fatalf("got %v %d %d %v", allowed, remaining, retry, ok)
	}
	if _, _, _, ok := parseBucketResult("nope"); ok {
		t.Fatal("expected malformed result to be rejected")
	}
}

func TestNewLocalLimiter(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		Prefix:         "rl",
		KeyStrategy:    "ip",
	}
	e.Use(NewRateLimiter(cfg, nil, zap.NewNop()))
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		if rec := call(e, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := call(e, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

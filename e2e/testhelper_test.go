package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mediagrab/api/internal/engine"
	"github.com/mediagrab/api/internal/handler"
	"github.com/mediagrab/api/internal/middleware"
	"github.com/mediagrab/api/internal/registry"
	"github.com/mediagrab/api/internal/service"
	"github.com/mediagrab/api/internal/sweeper"
	ws "github.com/mediagrab/api/internal/websocket"
)

const (
	testPassword  = "test-password"
	testJWTSecret = "test-secret-for-e2e"
	testDelay     = 10 * time.Millisecond
)

// scriptedEngine stands in for yt-dlp in black-box tests.
type scriptedEngine struct {
	mu sync.Mutex
	// fetch is invoked for every submitted job.
	fetch func(ctx context.Context, req engine.FetchRequest, progress engine.ProgressFunc) (*engine.FetchResult, error)
	probe func(ctx context.Context, url string) (*engine.MediaInfo, error)
}

func (s *scriptedEngine) Probe(ctx context.Context, url string) (*engine.MediaInfo, error) {
	s.mu.Lock()
	fn := s.probe
	s.mu.Unlock()
	if fn == nil {
		return &engine.MediaInfo{Title: "Test Video", Duration: 42}, nil
	}
	return fn(ctx, url)
}

func (s *scriptedEngine) Fetch(ctx context.Context, req engine.FetchRequest, progress engine.ProgressFunc) (*engine.FetchResult, error) {
	s.mu.Lock()
	fn := s.fetch
	s.mu.Unlock()
	return fn(ctx, req, progress)
}

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	reg     *registry.Registry
	sweeper *sweeper.Sweeper
	cookie  string
	dir     string
}

// setupApp builds a Fiber app wired like main.go, with the engine
// scripted and Redis pointed nowhere so the rate limiter fails open.
func setupApp(t *testing.T, eng engine.Engine) *testApp {
	t.Helper()

	dir := t.TempDir()

	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	t.Cleanup(func() { redisClient.Close() })

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	reg := registry.New()
	authService := service.NewAuthService(testPassword, testJWTSecret, 1, testDelay)
	jobService := service.NewJobService(reg, eng, hub, dir, 3, 500)

	authHandler := handler.NewAuthHandler(authService, validate)
	jobHandler := handler.NewJobHandler(jobService, validate)
	mediaHandler := handler.NewMediaHandler(eng, validate)
	settingsHandler := handler.NewSettingsHandler(dir + "/cookies.txt")

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/auth/login", authHandler.Login)
	app.Post("/auth/logout", authHandler.Logout)

	api := app.Group("/api", authMiddleware.Authenticate())
	api.Post("/media/probe", rateLimiter.ProbeLimit(10000), mediaHandler.Probe)
	api.Post("/jobs", rateLimiter.SubmitLimit(10000), jobHandler.Submit)
	api.Get("/jobs/:jobId", jobHandler.Status)
	api.Get("/jobs/:jobId/artifact", jobHandler.Artifact)
	api.Get("/settings/cookies", settingsHandler.CookiesStatus)
	api.Post("/settings/cookies", settingsHandler.UploadCookies)
	api.Delete("/settings/cookies", settingsHandler.ClearCookies)

	ta := &testApp{
		app:     app,
		reg:     reg,
		sweeper: sweeper.New(reg, 0, time.Minute),
		dir:     dir,
	}
	ta.cookie = login(t, app)
	return ta
}

// login authenticates and returns the session cookie value.
func login(t *testing.T, app *fiber.App) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"`+testPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}

	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie in login response")
	return ""
}

func doRequest(app *fiber.App, method, path, body string, cookie string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie})
	}
	return app.Test(req, 5000)
}

func (ta *testApp) doAuthRequest(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, method, path, body, ta.cookie)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d (body: %s)", want, resp.StatusCode, body)
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

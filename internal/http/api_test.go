package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"inkpost/internal/domain"
	"inkpost/internal/metrics"
	"inkpost/internal/repository/sqlite"
	"inkpost/internal/service"
	"inkpost/internal/session"
	"inkpost/internal/weather"
)

type stubFetcher struct {
	err error
}

func (s *stubFetcher) Fetch(_ context.Context, loc weather.Location) (domain.WeatherReading, error) {
	if s.err != nil {
		return domain.WeatherReading{}, s.err
	}
	return domain.WeatherReading{City: loc.City, Temperature: 22.5, Condition: "clear sky", Humidity: 40, WindSpeed: 3}, nil
}

type testServer struct {
	router  *gin.Engine
	fetcher *stubFetcher
	users   service.UserService
}

func newTestServer(t *testing.T, limiter *LoginLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	weatherRepo := sqlite.NewWeatherRepository(db)
	require.NoError(t, sqlite.InitAll(context.Background(), userRepo, postRepo, weatherRepo))

	users, err := service.NewUserService(service.UserServiceConfig{Users: userRepo, Logger: logger})
	require.NoError(t, err)
	gate := session.NewGate(users, users, logger)

	store, err := session.NewMemoryStore(time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tokens, err := session.NewTokenCodec("test-secret-that-is-long-enough", time.Hour)
	require.NoError(t, err)

	m := metrics.New()
	fetcher := &stubFetcher{}
	handler := NewHandler(Config{
		Users: users,
		Posts: service.NewPostService(postRepo, gate, logger),
		Weather: service.NewWeatherService(service.WeatherServiceConfig{
			Readings: weatherRepo,
			Fetcher:  fetcher,
			Location: weather.Location{City: "Chongqing"},
			OnFetch:  m.ObserveWeatherFetch,
		}),
		Gate:           gate,
		Sessions:       session.NewManager(store, tokens),
		Limiter:        limiter,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		WeatherHistory: 5,
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, fetcher: fetcher, users: users}
}

func (s *testServer) register(t *testing.T, username string) {
	t.Helper()
	apitest.New().
		Handler(s.router).
		Post("/api/auth/register").
		JSON(fmt.Sprintf(`{"username":%q,"password":"secret1"}`, username)).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.username", username)).
		End()
}

// login returns the session cookie value.
func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	res := apitest.New().
		Handler(s.router).
		Post("/api/auth/login").
		JSON(fmt.Sprintf(`{"username":%q,"password":"secret1"}`, username)).
		Expect(t).
		Status(http.StatusOK).
		CookiePresent(sessionCookie).
		End()
	for _, c := range res.Response.Cookies() {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie", sessionCookie)
	return ""
}

func (s *testServer) createPost(t *testing.T, cookie, title string) int64 {
	t.Helper()
	var created PostResponse
	apitest.New().
		Handler(s.router).
		Post("/api/posts").
		Cookie(sessionCookie, cookie).
		JSON(fmt.Sprintf(`{"title":%q,"content":"hello"}`, title)).
		Expect(t).
		Status(http.StatusCreated).
		End().
		JSON(&created)
	require.NotZero(t, created.ID)
	return created.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	apitest.New().
		Handler(s.router).
		Get("/api/health").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"ok":"ok"}`).
		End()
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")

	apitest.New().
		Handler(s.router).
		Get("/api/auth/me").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "login required")).
		End()

	apitest.New().
		Handler(s.router).
		Post("/api/auth/login").
		JSON(`{"username":"alice","password":"wrong"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "invalid username or password")).
		CookieNotPresent(sessionCookie).
		End()

	apitest.New().
		Handler(s.router).
		Post("/api/auth/login").
		JSON(`{"username":"nobody","password":"secret1"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "invalid username or password")).
		End()

	cookie := s.login(t, "alice")
	apitest.New().
		Handler(s.router).
		Get("/api/auth/me").
		Cookie(sessionCookie, cookie).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "alice")).
		End()
}

func TestLoginRotatesSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	first := s.login(t, "alice")

	res := apitest.New().
		Handler(s.router).
		Post("/api/auth/login").
		Cookie(sessionCookie, first).
		JSON(`{"username":"alice","password":"secret1"}`).
		Expect(t).
		Status(http.StatusOK).
		End()
	var second string
	for _, c := range res.Response.Cookies() {
		if c.Name == sessionCookie {
			second = c.Value
		}
	}
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)

	apitest.New().
		Handler(s.router).
		Get("/api/auth/me").
		Cookie(sessionCookie, first).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	cookie := s.login(t, "alice")

	apitest.New().
		Handler(s.router).
		Post("/api/auth/logout").
		Cookie(sessionCookie, cookie).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.logged_out", true)).
		End()

	// The old token no longer maps to a session even though alice exists.
	apitest.New().
		Handler(s.router).
		Get("/api/auth/me").
		Cookie(sessionCookie, cookie).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	cookie := s.login(t, "alice")

	apitest.New().
		Handler(s.router).
		Get("/api/auth/me").
		Cookie(sessionCookie, cookie+"x").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")

	apitest.New().
		Handler(s.router).
		Post("/api/auth/register").
		JSON(`{"username":"alice","password":"other"}`).
		Expect(t).
		Status(http.StatusConflict).
		End()

	apitest.New().
		Handler(s.router).
		Post("/api/auth/register").
		JSON(`{"username":"","password":"secret1"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	apitest.New().
		Handler(s.router).
		Post("/api/auth/register").
		JSON(`not json`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestLoginThrottled(t *testing.T) {
	s := newTestServer(t, NewLoginLimiter(1, 2))
	s.register(t, "alice")

	for i := 0; i < 2; i++ {
		apitest.New().
			Handler(s.router).
			Post("/api/auth/login").
			JSON(`{"username":"alice","password":"wrong"}`).
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	}

	// Even the right password is refused once the bucket is empty.
	apitest.New().
		Handler(s.router).
		Post("/api/auth/login").
		JSON(`{"username":"alice","password":"secret1"}`).
		Expect(t).
		Status(http.StatusTooManyRequests).
		End()

	apitest.New().
		Handler(s.router).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			body, err := io.ReadAll(res.Body)
			if err != nil {
				return err
			}
			for _, want := range []string{`outcome="failure"} 2`, `outcome="throttled"} 1`} {
				if !containsLine(string(body), want) {
					return fmt.Errorf("metrics missing %s", want)
				}
			}
			return nil
		}).
		End()
}

func TestPostOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	s.register(t, "bob")
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	apitest.New().
		Handler(s.router).
		Post("/api/posts").
		JSON(`{"title":"t","content":"c"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	id := s.createPost(t, alice, "R")
	path := fmt.Sprintf("/api/posts/%d", id)

	apitest.New().
		Handler(s.router).
		Put(path).
		Cookie(sessionCookie, bob).
		JSON(`{"title":"R","content":"mine now"}`).
		Expect(t).
		Status(http.StatusForbidden).
		Assert(jsonpath.Equal("$.error", "not permitted")).
		End()

	apitest.New().
		Handler(s.router).
		Delete(path).
		Cookie(sessionCookie, bob).
		Expect(t).
		Status(http.StatusForbidden).
		End()

	apitest.New().
		Handler(s.router).
		Put(path).
		Cookie(sessionCookie, alice).
		JSON(`{"title":"R","content":"edited","version":1}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.content", "edited")).
		Assert(jsonpath.Equal("$.version", float64(2))).
		End()

	apitest.New().
		Handler(s.router).
		Put(path).
		Cookie(sessionCookie, alice).
		JSON(`{"title":"R","content":"stale","version":1}`).
		Expect(t).
		Status(http.StatusConflict).
		End()

	apitest.New().
		Handler(s.router).
		Get("/api/posts").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.count", float64(1))).
		Assert(jsonpath.Equal("$.posts[0].content", "edited")).
		End()

	apitest.New().
		Handler(s.router).
		Delete(path).
		Cookie(sessionCookie, alice).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(s.router).
		Get(path).
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.error", "post not found")).
		End()
}

func TestCreatePostIgnoresClientOwner(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	s.register(t, "bob")
	alice := s.login(t, "alice")

	bobUser, err := s.users.Authenticate(context.Background(), "bob", "secret1")
	require.NoError(t, err)

	var created PostResponse
	apitest.New().
		Handler(s.router).
		Post("/api/posts").
		Cookie(sessionCookie, alice).
		JSON(fmt.Sprintf(`{"title":"t","content":"c","owner_id":%d}`, bobUser.ID)).
		Expect(t).
		Status(http.StatusCreated).
		End().
		JSON(&created)
	require.NotEqual(t, bobUser.ID, created.OwnerID)

	apitest.New().
		Handler(s.router).
		Get(fmt.Sprintf("/api/users/%d/posts", bobUser.ID)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.count", float64(0))).
		End()
}

func TestInvalidIDs(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/posts/abc", "/api/posts/0", "/api/users/-1/posts"} {
		apitest.New().
			Handler(s.router).
			Get(path).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	}
}

func TestWeatherEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")
	alice := s.login(t, "alice")

	var empty WeatherOverviewResponse
	apitest.New().
		Handler(s.router).
		Get("/api/weather").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.city", "Chongqing")).
		Assert(jsonpath.Len("$.history", 0)).
		End().
		JSON(&empty)
	require.Nil(t, empty.Latest)

	apitest.New().
		Handler(s.router).
		Post("/api/weather/fetch").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(s.router).
		Post("/api/weather/fetch").
		Cookie(sessionCookie, alice).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.condition", "clear sky")).
		End()

	s.fetcher.err = errors.New("upstream timeout")
	apitest.New().
		Handler(s.router).
		Post("/api/weather/fetch").
		Cookie(sessionCookie, alice).
		Expect(t).
		Status(http.StatusBadGateway).
		End()

	apitest.New().
		Handler(s.router).
		Get("/api/weather").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.latest.temperature", 22.5)).
		Assert(jsonpath.Len("$.history", 1)).
		End()
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	apitest.New().
		Handler(s.router).
		Method(http.MethodOptions).
		URL("/api/posts").
		Header("Origin", "http://localhost:3000").
		Header("Access-Control-Request-Method", "POST").
		Expect(t).
		Status(http.StatusNoContent).
		Header("Access-Control-Allow-Origin", "http://localhost:3000").
		Header("Access-Control-Allow-Credentials", "true").
		End()
}

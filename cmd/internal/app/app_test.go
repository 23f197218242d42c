package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "empty host", in: ":8000", want: "http://127.0.0.1:8000"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

// devEnv configures an in-memory app with cheap password hashing.
func devEnv(t *testing.T) {
	t.Helper()

	t.Setenv("NEWSLETTER_DATABASE_URL", "")
	t.Setenv("NEWSLETTER_EMAIL_BACKEND", "log")
	t.Setenv("NEWSLETTER_HMAC_SECRET", "")
	t.Setenv("NEWSLETTER_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("NEWSLETTER_ARGON2_ITERATIONS", "1")
	t.Setenv("NEWSLETTER_ARGON2_PARALLELISM", "1")
}

func newDevApp(t *testing.T) *App {
	t.Helper()

	devEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestLoadConfig_Defaults(t *testing.T) {
	devEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr)
	assert.Equal(t, "newsletter", cfg.DBSchema)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, EmailBackendLog, cfg.Email.Backend)
	assert.Equal(t, "2s", cfg.DBAcquireTimeout.String())
	assert.Equal(t, "10s", cfg.Email.Timeout.String())
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "log format", key: "NEWSLETTER_LOG_FORMAT", val: "xml"},
		{name: "schema", key: "NEWSLETTER_DB_SCHEMA", val: "bad-schema"},
		{name: "backend", key: "NEWSLETTER_EMAIL_BACKEND", val: "carrier-pigeon"},
		{name: "http backend without url", key: "NEWSLETTER_EMAIL_BACKEND", val: "http"},
		{name: "duration", key: "NEWSLETTER_DB_ACQUIRE_TIMEOUT", val: "soon"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			devEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadHMACKey(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("configured", func(t *testing.T) {
		t.Setenv("NEWSLETTER_HMAC_SECRET", strings.Repeat("k", 32))
		key, err := LoadHMACKey(Config{RequireHMACSecret: true}, log)
		require.NoError(t, err)
		assert.Equal(t, []byte(strings.Repeat("k", 32)), key)
	})

	t.Run("missing and required", func(t *testing.T) {
		t.Setenv("NEWSLETTER_HMAC_SECRET", "")
		_, err := LoadHMACKey(Config{RequireHMACSecret: true}, log)
		require.Error(t, err)
	})

	t.Run("missing and optional is ephemeral", func(t *testing.T) {
		t.Setenv("NEWSLETTER_HMAC_SECRET", "")
		a, err := LoadHMACKey(Config{}, log)
		require.NoError(t, err)
		b, err := LoadHMACKey(Config{}, log)
		require.NoError(t, err)
		assert.Len(t, a, 32)
		assert.NotEqual(t, a, b)
	})

	t.Run("short is always fatal", func(t *testing.T) {
		t.Setenv("NEWSLETTER_HMAC_SECRET", "short")
		_, err := LoadHMACKey(Config{}, log)
		require.Error(t, err)
	})
}

func TestApp_DevModeRoutes(t *testing.T) {
	a := newDevApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/health_check"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"), path)
	}

	res, err := http.PostForm(srv.URL+"/newsletters/subscriptions", url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	})
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `newsletter_subscriptions_total{result="ok"} 1`)
	assert.Contains(t, string(body), `newsletter_http_requests_total{method="POST",route="/newsletters/subscriptions",status="200"} 1`)
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	devEnv(t)
	t.Setenv("NEWSLETTER_READINESS_REQUIRE_DB", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

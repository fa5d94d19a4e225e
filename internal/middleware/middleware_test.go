package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/screen-seat-reservation/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func okHandler(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"ok": true}) }

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.POST("/screens", okHandler, NewTokenBucket(rateCfg(), rdb, zap.NewNop()))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/screens").Code)
	rec := serve(e, http.MethodPost, "/screens")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/screens")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":429,"message":"Too Many Requests"}`, rec.Body.String())
}

func TestTokenBucket_KeysPerRoute(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := rateCfg()
	cfg.Capacity = 1
	e := echo.New()
	mw := NewTokenBucket(cfg, rdb, zap.NewNop())
	e.POST("/a", okHandler, mw)
	e.POST("/b", okHandler, mw)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/a").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/b").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/a").Code)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	e := echo.New()
	cfg := rateCfg()
	cfg.Capacity = 1
	e.POST("/screens", okHandler, NewTokenBucket(cfg, rdb, zap.NewNop()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/screens").Code)
	}
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.POST("/screens", okHandler, NewTokenBucket(rateCfg(), nil, zap.NewNop()))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/screens").Code)
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:    true,
		Methods:    map[string]bool{http.MethodGet: true},
		TTL:        time.Minute,
		Prefix:     "cache",
		ScopeParam: "screenName",
	}
}

func TestResponseCache_HitMissPurge(t *testing.T) {
	mr, rdb := newRedis(t)
	rc := NewResponseCache(cacheCfg(), rdb, zap.NewNop())
	calls := map[string]int{}
	e := echo.New()
	e.GET("/screens/:screenName/seats", func(c echo.Context) error {
		calls[c.Param("screenName")]++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls[c.Param("screenName")]})
	}, rc.Middleware())

	rec := serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := rec.Body.String()

	rec = serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, first, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls["inox"])
	assert.True(t, mr.Exists(rc.ScopeKey("inox")))

	serve(e, http.MethodGet, "/screens/pvr/seats?status=unreserved")
	require.NoError(t, rc.Purge(context.Background(), "inox"))
	assert.False(t, mr.Exists(rc.ScopeKey("inox")))
	assert.True(t, mr.Exists(rc.ScopeKey("pvr")), "purge is scoped to one screen")

	rec = serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls["inox"])
}

func TestResponseCache_PurgeDuringRequestSkipsStore(t *testing.T) {
	mr, rdb := newRedis(t)
	rc := NewResponseCache(cacheCfg(), rdb, zap.NewNop())
	calls := 0
	e := echo.New()
	e.GET("/screens/:screenName/seats", func(c echo.Context) error {
		calls++
		if calls == 1 {
			// A reservation commits while this read is in flight.
			require.NoError(t, rc.Purge(c.Request().Context(), "inox"))
		}
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, rc.Middleware())

	rec := serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.False(t, mr.Exists(rc.ScopeKey("inox")), "response built before the purge must not be stored")
	gen, err := mr.Get(rc.genKey(rc.ScopeKey("inox")))
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	rec = serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.True(t, mr.Exists(rc.ScopeKey("inox")))

	rec = serve(e, http.MethodGet, "/screens/inox/seats?status=unreserved")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(cacheCfg(), rdb, zap.NewNop())
	calls := 0
	e := echo.New()
	e.GET("/screens/:screenName/seats", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusBadRequest, echo.Map{"status": 400, "message": "Bad request"})
	}, rc.Middleware())

	serve(e, http.MethodGet, "/screens/inox/seats")
	serve(e, http.MethodGet, "/screens/inox/seats")
	assert.Equal(t, 2, calls)
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := NewResponseCache(cacheCfg(), nil, zap.NewNop())
	assert.NoError(t, rc.Purge(context.Background(), "inox"))
	e := echo.New()
	e.GET("/x", okHandler, rc.Middleware())
	rec := serve(e, http.MethodGet, "/x")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", okHandler)
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	serve(e, http.MethodGet, "/ok")
	serve(e, http.MethodGet, "/boom")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["uri"])
}

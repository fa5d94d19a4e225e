package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/screen-seat-reservation/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// errStaleGeneration aborts a store when the scope was purged while the
// response was being built.
var errStaleGeneration = errors.New("scope purged during request")

// ResponseCache caches successful responses in Redis.  Responses of a
// route with the configured scope parameter are stored as fields of one
// hash per parameter value, so Purge can drop all of them with one DEL.
// Each scope also has a generation counter bumped by Purge; a response is
// only stored if the counter still holds the value read before the
// handler ran.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

// NewResponseCache returns a cache.  A nil client disables it.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log.Named("cache")}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// ScopeKey is the Redis key holding every cached response of one scope
// value (for example one screen).
func (rc *ResponseCache) ScopeKey(scope string) string {
	return rc.cfg.Prefix + ":scope:" + scope
}

func (rc *ResponseCache) genKey(scopeKey string) string { return scopeKey + ":gen" }

// generation returns the current counter of a scope key; a missing
// counter is generation 0.
func (rc *ResponseCache) generation(ctx context.Context, g redis.StringCmdable, scopeKey string) (int64, error) {
	n, err := g.Get(ctx, rc.genKey(scopeKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// keyFor returns the Redis key and, for scoped routes, the hash field.
func (rc *ResponseCache) keyFor(c echo.Context) (key, field string) {
	r := c.Request()
	sum := sha1.Sum([]byte(strings.Join([]string{r.Method, r.URL.Path, r.URL.RawQuery}, ":")))
	digest := fmt.Sprintf("%x", sum[:])
	if rc.cfg.ScopeParam != "" {
		if scope := c.Param(rc.cfg.ScopeParam); scope != "" {
			return rc.ScopeKey(scope), digest
		}
	}
	return rc.cfg.Prefix + ":" + digest, ""
}

// Purge drops every cached response for scope.
func (rc *ResponseCache) Purge(ctx context.Context, scope string) error {
	if !rc.enabled() {
		return nil
	}
	key := rc.ScopeKey(scope)
	_, err := rc.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, rc.genKey(key))
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		rc.log.Warn("purge failed", zap.String("scope", scope), zap.Error(err))
		return err
	}
	return nil
}

// Middleware serves hits from Redis and stores 200 responses on a miss.
// Headers are stored with the body so clients see identical formatting.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key, field := rc.keyFor(c)

			var cached []byte
			var err error
			if field != "" {
				cached, err = rc.rdb.HGet(ctx, key, field).Bytes()
			} else {
				cached, err = rc.rdb.Get(ctx, key).Bytes()
			}
			if err == nil {
				if status, hdr, body, ok := decodePayload(cached); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			var gen int64
			if field != "" {
				if gen, err = rc.generation(ctx, rc.rdb, key); err != nil {
					rc.log.Warn("generation read failed", zap.String("key", key), zap.Error(err))
					return next(c)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// The request context may already be cancelled once the client
			// has its response.
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if field != "" {
				err = rc.rdb.Watch(sctx, func(tx *redis.Tx) error {
					cur, err := rc.generation(sctx, tx, key)
					if err != nil {
						return err
					}
					if cur != gen {
						return errStaleGeneration
					}
					_, err = tx.TxPipelined(sctx, func(p redis.Pipeliner) error {
						p.HSet(sctx, key, field, payload)
						p.Expire(sctx, key, rc.cfg.TTL)
						return nil
					})
					return err
				}, rc.genKey(key))
			} else {
				err = rc.rdb.SetEx(sctx, key, payload, rc.cfg.TTL).Err()
			}
			switch {
			case err == nil:
			case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
				rc.log.Debug("store skipped, scope purged", zap.String("key", key))
			default:
				rc.log.Warn("store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

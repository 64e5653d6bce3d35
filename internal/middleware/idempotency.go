package middleware

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Idempotency returns middleware that deduplicates batch submissions by a
// client-generated Idempotency-Key header.  The first response for a key
// is captured in Redis; repeats within the TTL get the stored response
// back instead of a second commit attempt.  This is deliberately a
// boundary-layer concern: the engine below performs exactly one commit
// per request and never deduplicates on its own.
//
// Requests without the header, or when Redis is down, pass straight
// through.  Responses with 5xx status are not stored so a transient
// failure can be retried with the same key.
func Idempotency(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	if rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idemKey := c.Request().Header.Get("Idempotency-Key")
			if idemKey == "" {
				return next(c)
			}
			key := fmt.Sprintf("seatplanner:idem:%s:%s:%s",
				CurrentUserString(c), c.Param("id"), idemKey)
			ctx := c.Request().Context()

			if payload, err := rdb.Get(ctx, key).Bytes(); err == nil {
				status, body, decodeErr := decodeReplay(payload)
				if decodeErr == nil {
					c.Response().Header().Set("X-Idempotent-Replay", "true")
					return c.JSONBlob(status, body)
				}
			}

			cw := &replayWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status < http.StatusInternalServerError {
				_ = rdb.Set(ctx, key, encodeReplay(cw.status, cw.buf.Bytes()), ttl).Err()
			}
			return nil
		}
	}
}

// replayWriter captures the response body and status while forwarding to
// the client.
type replayWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *replayWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *replayWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// encodeReplay packs: [4 bytes status][body]
func encodeReplay(status int, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(status))
	copy(out[4:], body)
	return out
}

func decodeReplay(payload []byte) (int, []byte, error) {
	if len(payload) < 4 {
		return 0, nil, fmt.Errorf("replay payload too short")
	}
	return int(binary.BigEndian.Uint32(payload[:4])), payload[4:], nil
}

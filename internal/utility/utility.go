package utility

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetRealIP returns the client address, preferring proxy headers.
func GetRealIP(c echo.Context) string {
	// X-Forwarded-For can be a list: "client, proxy1, proxy2"
	if xForwardedFor := c.Request().Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := c.Request().Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	return c.RealIP()
}

// ParseIntParam parses a positive query parameter, returning fallback otherwise.
func ParseIntParam(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// RandomJitter returns a duration in [0, max). It uses crypto/rand so that
// concurrent callers do not share a seeded source.
func RandomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using zero jitter")
		return 0
	}
	return time.Duration(n.Int64())
}

// RandomDelay sleeps for a random duration in [0, max). It returns ctx.Err()
// if the context ends first.
func RandomDelay(ctx context.Context, max time.Duration) error {
	d := RandomJitter(max)
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LoggerFromContext returns the request-scoped logger set by the server
// middleware, or the global logger.
func LoggerFromContext(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get("logger").(*zerolog.Logger); ok && l != nil {
		return l
	}
	return &log.Logger
}

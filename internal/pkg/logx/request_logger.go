/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP middleware that logs request lifecycle information
(URI, method, status, latency) with anonymized client addresses.
*/
package logx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AnonymizeIP zeros the last octet of an IPv4 address and keeps only the first
// half of an IPv6 address. A host:port input is accepted.
func AnonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		if ip.To4() != nil {
			return "127.0.0.1"
		}
		return "::1"
	}

	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}

	if v6 := ip.To16(); v6 != nil {
		return net.IP(append(v6[:8:8], make([]byte, 8)...)).String()
	}

	return ipStr
}

// RequestLogger returns an HTTP middleware that logs each request once it completes.
// A request-scoped logger is injected into the request context.
func RequestLogger() func(next http.Handler) http.Handler {
	baseLogger := Logger()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := baseLogger.With().
				Str("component", "http").
				Str("request_id", requestID).
				Str("remote_ip", AnonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", r.RequestURI).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			t1 := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()

			logEvent := logger.Info()
			if status >= 500 {
				logEvent = logger.Error()
			} else if status >= 400 {
				logEvent = logger.Warn()
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(t1)).
				Msg("Request completed")
		}

		return http.HandlerFunc(fn)
	}
}

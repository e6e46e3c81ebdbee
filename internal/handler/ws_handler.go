/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which rate limits upgrades per client IP,
upgrades the HTTP connection to WebSocket, and runs the client lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"signalroom/internal/app/signaling"
	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/limiter"
	"signalroom/internal/pkg/logx"
	"signalroom/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Identity and room membership are established later by join/create messages.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	opts := signaling.ClientOptions{
		MaxMessageSize: deps.Config.MaxMessageSize,
		MessageRate:    rate.Limit(deps.Config.MessageRate),
		MessageBurst:   deps.Config.MessageBurst,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !deps.UpgradeLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		signaling.NewClient(deps.Manager, conn, opts).Start()
	}
}

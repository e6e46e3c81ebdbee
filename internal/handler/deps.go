package handler

import (
	"signalroom/internal/app/signaling"
	"signalroom/internal/app/storage"
	"signalroom/internal/configs"
	"signalroom/internal/pkg/limiter"
)

// AppDeps are the long-lived objects the HTTP layer needs.
type AppDeps struct {
	Manager *signaling.Manager
	Config  *configs.AppConfig

	// Covers is nil when S3 storage is not configured.
	Covers *storage.CoverService

	// UpgradeLimiter bounds WebSocket upgrades per client IP. The owner closes it.
	UpgradeLimiter *limiter.IPRateLimiter
}

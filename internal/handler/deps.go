package handler

import (
	"termio/internal/app/stream"
	"termio/internal/configs"
)

// AppDeps bundles the shared components handlers need. The registry is
// reached through the hub, which owns it.
type AppDeps struct {
	Hub    *stream.Hub
	Config *configs.AppConfig
}

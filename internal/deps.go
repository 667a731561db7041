package internal

import (
	"mediband/api/config"
	"mediband/api/internal/service"
)

// Deps is everything a handler may reach. Handlers get it passed in
// explicitly by the router.
type Deps struct {
	Config   *config.Config
	Auth     *service.Authenticator
	Guard    *service.RecordGuard
	Uploader *service.Uploader
}

// Package di provides dependency injection configuration for the
// MediaKeep server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/di/providers"
	"github.com/mediakeepapp/mediakeep-server/internal/logger"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Media pipeline
	do.Provide(injector, providers.ProvideThumbnailer)
	do.Provide(injector, providers.ProvideScanner)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once they are live.
// This triggers lazy initialization in dependency order.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ThumbnailerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*scanner.Scanner](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.FileWatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}

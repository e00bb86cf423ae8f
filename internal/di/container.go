package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qravy/storefront-api/internal/platform/config"
	"github.com/qravy/storefront-api/internal/repositories"
	"github.com/qravy/storefront-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog services.CatalogService
	System  services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerOption customises optional collaborators before the services are built.
type ContainerOption func(*containerDeps)

type containerDeps struct {
	events services.MenuEventPublisher
	logger *zap.Logger
	build  services.BuildInfo
}

// WithMenuEventPublisher provides the publisher used for menu analytics events.
func WithMenuEventPublisher(pub services.MenuEventPublisher) ContainerOption {
	return func(deps *containerDeps) {
		deps.events = pub
	}
}

// WithLogger sets the logger handed to the services.
func WithLogger(logger *zap.Logger) ContainerOption {
	return func(deps *containerDeps) {
		deps.logger = logger
	}
}

// WithBuildInfo records version metadata surfaced in health reports.
func WithBuildInfo(build services.BuildInfo) ContainerOption {
	return func(deps *containerDeps) {
		deps.build = build
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(_ context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	deps := containerDeps{
		build: services.BuildInfo{
			Environment: cfg.Security.Environment,
			StartedAt:   time.Now().UTC(),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if deps.build.Environment == "" {
		deps.build.Environment = cfg.Security.Environment
	}
	if deps.build.StartedAt.IsZero() {
		deps.build.StartedAt = time.Now().UTC()
	}

	svc, err := buildServices(reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, deps containerDeps) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Tenants:          reg.Tenants(),
		Locations:        reg.Locations(),
		Categories:       reg.Categories(),
		MenuItems:        reg.MenuItems(),
		CategoryOverlays: reg.CategoryOverlays(),
		ItemOverlays:     reg.ItemOverlays(),
		Events:           deps.events,
		Logger:           deps.logger,
		Clock:            time.Now,
		EmitMenuEvents:   cfg.Features.EnableMenuEvents && deps.events != nil,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            deps.build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

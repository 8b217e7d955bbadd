package container

import (
	"net/http"

	"github.com/lyzr/cdn/cmd/cdn/service"
	"github.com/lyzr/cdn/common/bootstrap"
	"github.com/lyzr/cdn/common/clients"
	"github.com/lyzr/cdn/common/identity"
	"github.com/lyzr/cdn/common/integrity"
	"github.com/lyzr/cdn/common/origin"
	"github.com/lyzr/cdn/common/security"
	"github.com/lyzr/cdn/common/transform"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	HTTPClient *clients.HTTPClient

	// Pipeline stages
	Resolver    *identity.CachingResolver
	Fetcher     *origin.XRPCFetcher
	Verifier    *integrity.Verifier
	Transformer *transform.Transformer

	// Services
	PipelineService *service.PipelineService
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	// Without AllowPrivate every outbound connection is checked at dial time as well,
	// so DNS that changes between validation and connect cannot reach a private IP
	var validator *security.URLValidator
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Origin.AllowPrivate {
		log.Warn("origin endpoint validation disabled; private and loopback origins are reachable")
	} else {
		validator = security.NewURLValidator()
		transport.DialContext = security.NewSafeDialer().DialContext
	}

	// Redirects are not followed; a PDS or DID host that redirects is treated as a failure
	httpClient := clients.NewHTTPClient(&http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, cfg.Origin.UserAgent, log)

	// Initialize pipeline stages (bottom-up: dependencies first)
	didResolver := identity.NewDIDResolver(cfg.Identity.PLCDirectoryURL, httpClient, cfg.Identity.Timeout, log)
	var originValidator origin.EndpointValidator
	if validator != nil {
		didResolver.WithValidator(validator)
		originValidator = validator
	}
	resolver := identity.NewCachingResolver(didResolver, components.IdentityCache, cfg.Identity.CacheTTL, log)

	fetcher := origin.NewXRPCFetcher(httpClient, originValidator, cfg.Origin.Timeout, cfg.Origin.MaxBlobBytes, log)

	verifier := integrity.NewVerifier()
	transformer := transform.New(cfg.Transform.MaxPixels)

	pipeline := service.NewPipelineService(
		resolver,
		fetcher,
		verifier,
		transformer,
		components.Store,
		service.PipelineConfig{
			StorageTimeout: cfg.Storage.Timeout,
			SingleFlight:   cfg.Features.EnableSingleFlight,
		},
		components.Metrics,
		log,
	)

	return &Container{
		Components:      components,
		HTTPClient:      httpClient,
		Resolver:        resolver,
		Fetcher:         fetcher,
		Verifier:        verifier,
		Transformer:     transformer,
		PipelineService: pipeline,
	}, nil
}

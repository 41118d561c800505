package interfaces

import (
	"context"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type SubdomainAllocator interface {
	Allocate(ctx context.Context, baseName string) string
	Release(subdomain string)
}

// SiteFiles owns the on-disk site directories, one per store keyed by its domain.
type SiteFiles interface {
	Generate(ctx context.Context, store *db.Store, pages []db.StorePage) (string, error)
	Dir(domain string) string
	Exists(domain string) bool
	Remove(domain string) error
}

type Publisher interface {
	Publish(ctx context.Context, store *db.Store, dir string, onProgress events.ProgressFunc) (*dto.PublishResult, error)
}

type VersionControl interface {
	CommitAndPush(ctx context.Context, site dto.HostedSite, message string) error
	Remove(ctx context.Context, site dto.HostedSite, message string) error
}

type HostingPlatform interface {
	EnsureDomain(ctx context.Context, site dto.HostedSite) error
	Deploy(ctx context.Context, site dto.HostedSite) (string, error)
	Alias(ctx context.Context, deploymentURL string, site dto.HostedSite) error
	RemoveAlias(ctx context.Context, site dto.HostedSite) error
	RemoveDomain(ctx context.Context, site dto.HostedSite) error
	RemoveProject(ctx context.Context, site dto.HostedSite) error
	PurgeCache(ctx context.Context, site dto.HostedSite) error
}

type DomainChecker interface {
	CheckAvailability(ctx context.Context, domain string) (bool, error)
}

type DomainVerifier interface {
	VerifyLive(ctx context.Context, domain string, maxAttempts int, interval time.Duration) bool
}

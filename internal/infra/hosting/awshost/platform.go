package awshost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/aws/aws-sdk-go-v2/aws"
)

type objectStore interface {
	UploadDir(ctx context.Context, prefix, dir string) ([]string, error)
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	DeleteKeys(ctx context.Context, keys []string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type distributions interface {
	FindByAlias(ctx context.Context, domain string) (*Distribution, error)
	Create(ctx context.Context, originPath, s3WebDomain, domain, certificateArn string) (*Distribution, error)
	Disable(ctx context.Context, id string) error
	Invalidate(ctx context.Context, id string, paths ...string) (string, error)
}

type aliasRecords interface {
	UpsertAlias(ctx context.Context, domain, cfDomain string) error
	DeleteAlias(ctx context.Context, domain, cfDomain string) error
}

type certificates interface {
	ARNFor(ctx context.Context, domain string) (string, error)
}

// Platform hosts sites as S3 prefixes behind one CloudFront distribution per domain.
type Platform struct {
	cfg     Config
	storage objectStore
	cdn     distributions
	records aliasRecords
	certs   certificates

	mu sync.Mutex
	// disabled remembers distributions whose aliases were dropped by RemoveDomain, so a
	// later PurgeCache can still find them.
	disabled map[string]string
}

var _ interfaces.HostingPlatform = (*Platform)(nil)

func NewPlatform(cfg Config, awsConfig aws.Config) *Platform {
	return &Platform{
		cfg:      cfg,
		storage:  NewStorage(awsConfig, cfg.Bucket, cfg.Region),
		cdn:      NewCDN(awsConfig),
		records:  NewRecords(awsConfig),
		certs:    NewCertificates(awsConfig, cfg.BaseDomain, cfg.DefaultCertARN),
		disabled: make(map[string]string),
	}
}

func (p *Platform) prefix(site dto.HostedSite) string {
	return p.cfg.Prefix + "/" + site.Key
}

func (p *Platform) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

func (p *Platform) EnsureDomain(ctx context.Context, site dto.HostedSite) error {
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	existing, err := p.cdn.FindByAlias(timeoutCtx, site.Domain)
	if err != nil {
		return err
	}
	if existing != nil {
		slog.Info("distribution already serves domain", "domain", site.Domain, "distribution", existing.ID)
		return nil
	}
	certificateARN, err := p.certs.ARNFor(timeoutCtx, site.Domain)
	if err != nil {
		return fmt.Errorf("can't get certificate for %s, %v", site.Domain, err)
	}
	distribution, err := p.cdn.Create(timeoutCtx, "/"+p.prefix(site), p.cfg.S3WebDomain, site.Domain, certificateARN)
	if err != nil {
		return err
	}
	slog.Info("created distribution", "domain", site.Domain, "distribution", distribution.ID)
	return nil
}

// Deploy uploads the site, drops objects the new upload no longer has and invalidates the
// distribution. It returns the distribution url serving the site.
func (p *Platform) Deploy(ctx context.Context, site dto.HostedSite) (string, error) {
	prefix := p.prefix(site) + "/"
	uploaded, err := p.storage.UploadDir(ctx, prefix, site.Dir)
	if err != nil {
		return "", err
	}
	if err = p.prune(ctx, prefix, uploaded); err != nil {
		return "", err
	}
	distribution, err := p.distribution(ctx, site)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	if _, err = p.cdn.Invalidate(timeoutCtx, distribution.ID, "/*"); err != nil {
		return "", err
	}
	return "https://" + distribution.DomainName, nil
}

func (p *Platform) prune(ctx context.Context, prefix string, keep []string) error {
	existing, err := p.storage.ListFiles(ctx, prefix)
	if err != nil {
		return err
	}
	kept := make(map[string]struct{}, len(keep))
	for _, key := range keep {
		kept[key] = struct{}{}
	}
	var stale []string
	for _, key := range existing {
		if _, ok := kept[key]; !ok {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	deleted, err := p.storage.DeleteKeys(ctx, stale)
	if err != nil {
		return err
	}
	slog.Info("removed stale site files", "prefix", prefix, "count", deleted)
	return nil
}

func (p *Platform) Alias(ctx context.Context, _ string, site dto.HostedSite) error {
	distribution, err := p.distribution(ctx, site)
	if err != nil {
		return err
	}
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.records.UpsertAlias(timeoutCtx, site.Domain, distribution.DomainName)
}

func (p *Platform) RemoveAlias(ctx context.Context, site dto.HostedSite) error {
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	distribution, err := p.cdn.FindByAlias(timeoutCtx, site.Domain)
	if err != nil || distribution == nil {
		return err
	}
	return p.records.DeleteAlias(timeoutCtx, site.Domain, distribution.DomainName)
}

func (p *Platform) RemoveDomain(ctx context.Context, site dto.HostedSite) error {
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	distribution, err := p.cdn.FindByAlias(timeoutCtx, site.Domain)
	if err != nil || distribution == nil {
		return err
	}
	if err = p.cdn.Disable(timeoutCtx, distribution.ID); err != nil {
		return err
	}
	p.mu.Lock()
	p.disabled[site.Domain] = distribution.ID
	p.mu.Unlock()
	return nil
}

func (p *Platform) RemoveProject(ctx context.Context, site dto.HostedSite) error {
	deleted, err := p.storage.DeletePrefix(ctx, p.prefix(site)+"/")
	if err != nil {
		return err
	}
	slog.Info("removed site files from bucket", "prefix", p.prefix(site), "count", deleted)
	return nil
}

func (p *Platform) PurgeCache(ctx context.Context, site dto.HostedSite) error {
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	p.mu.Lock()
	id, ok := p.disabled[site.Domain]
	delete(p.disabled, site.Domain)
	p.mu.Unlock()

	if !ok {
		distribution, err := p.cdn.FindByAlias(timeoutCtx, site.Domain)
		if err != nil {
			return err
		}
		if distribution == nil {
			slog.Info("no distribution to purge", "domain", site.Domain)
			return nil
		}
		id = distribution.ID
	}
	_, err := p.cdn.Invalidate(timeoutCtx, id, "/*")
	return err
}

func (p *Platform) distribution(ctx context.Context, site dto.HostedSite) (*Distribution, error) {
	timeoutCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	distribution, err := p.cdn.FindByAlias(timeoutCtx, site.Domain)
	if err != nil {
		return nil, err
	}
	if distribution == nil {
		return nil, fmt.Errorf("no distribution for %s", site.Domain)
	}
	return distribution, nil
}

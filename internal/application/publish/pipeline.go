package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type Config struct {
	VerifyAttempts int
	VerifyInterval time.Duration
	URLScheme      string
}

// Pipeline publishes a generated site: commit, register domain, deploy, alias, verify.
// Status bookkeeping is left to the caller.
type Pipeline struct {
	cfg      Config
	vcs      interfaces.VersionControl
	hosting  interfaces.HostingPlatform
	verifier interfaces.DomainVerifier
}

var _ interfaces.Publisher = (*Pipeline)(nil)

func NewPipeline(
	cfg Config, vcs interfaces.VersionControl, hosting interfaces.HostingPlatform, verifier interfaces.DomainVerifier,
) *Pipeline {
	if cfg.URLScheme == "" {
		cfg.URLScheme = "https"
	}
	return &Pipeline{cfg: cfg, vcs: vcs, hosting: hosting, verifier: verifier}
}

func (p *Pipeline) Publish(ctx context.Context, store *db.Store, dir string, onProgress events.ProgressFunc) (*dto.PublishResult, error) {
	site := dto.NewHostedSite(store, dir)
	result := &dto.PublishResult{URL: p.cfg.URLScheme + "://" + site.Domain}

	onProgress.Report(consts.StageCommit, "committing site files", 10)
	if err := p.vcs.CommitAndPush(ctx, site, CommitMessage(store.Subdomain, "deploy", site.Domain)); err != nil {
		return nil, stageFailed(consts.StageCommit, site, err)
	}
	onProgress.Report(consts.StageCommit, "site files pushed", 25)

	onProgress.Report(consts.StageRegisterDomain, "registering "+site.Domain, 30)
	if err := p.hosting.EnsureDomain(ctx, site); err != nil {
		return nil, stageFailed(consts.StageRegisterDomain, site, err)
	}
	onProgress.Report(consts.StageRegisterDomain, "domain registered", 40)

	onProgress.Report(consts.StageDeploy, "starting production deployment", 45)
	deploymentURL, err := p.hosting.Deploy(ctx, site)
	if err != nil {
		return nil, stageFailed(consts.StageDeploy, site, err)
	}
	result.DeploymentURL = deploymentURL
	onProgress.Report(consts.StageDeploy, "deployed to "+deploymentURL, 70)

	onProgress.Report(consts.StageAlias, "aliasing deployment to "+site.Domain, 75)
	if err = p.hosting.Alias(ctx, deploymentURL, site); err != nil {
		return nil, stageFailed(consts.StageAlias, site, err)
	}
	onProgress.Report(consts.StageAlias, "alias created", 85)

	onProgress.Report(consts.StageVerify, "waiting for "+site.Domain, 90)
	result.IsLive = p.verifier.VerifyLive(ctx, site.Domain, p.cfg.VerifyAttempts, p.cfg.VerifyInterval)
	if result.IsLive {
		onProgress.Report(consts.StageVerify, site.Domain+" is live", 100)
	} else {
		onProgress.Report(consts.StageVerify, site.Domain+" is not reachable yet", 100)
	}

	slog.Info("published store", "store", store.ID, "domain", site.Domain, "deployment", deploymentURL, "live", result.IsLive)
	return result, nil
}

func stageFailed(stage consts.Stage, site dto.HostedSite, err error) error {
	slog.Error("publish stage failed", "stage", stage, "domain", site.Domain, "err", err)
	return errs.StageError{Stage: stage, Err: err}
}

// CommitMessage formats "store(<subdomain>): <action> <domain>".
func CommitMessage(subdomain, action, domain string) string {
	return "store(" + subdomain + "): " + action + " " + domain
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/internal/application"
	"github.com/Builder-Lawyers/store-builder/internal/application/allocator"
	"github.com/Builder-Lawyers/store-builder/internal/application/commands/lifecycle"
	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/application/progress"
	"github.com/Builder-Lawyers/store-builder/internal/application/publish"
	"github.com/Builder-Lawyers/store-builder/internal/application/query"
	"github.com/Builder-Lawyers/store-builder/internal/infra/config"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db/repo"
	"github.com/Builder-Lawyers/store-builder/internal/infra/hosting"
	"github.com/Builder-Lawyers/store-builder/internal/infra/hosting/awshost"
	"github.com/Builder-Lawyers/store-builder/internal/infra/runner"
	"github.com/Builder-Lawyers/store-builder/internal/infra/sitegen"
	"github.com/Builder-Lawyers/store-builder/internal/infra/vcs"
	"github.com/Builder-Lawyers/store-builder/internal/infra/verify"
	"github.com/Builder-Lawyers/store-builder/pkg/db"
	"github.com/Builder-Lawyers/store-builder/pkg/env"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
)

type services struct {
	collection *application.Collection
	sites      config.SitesConfig
	uowFactory *db.UOWFactory
}

func (s *services) Close() {
	s.collection.Progress.Stop()
	s.uowFactory.Pool.Close()
}

func wire(ctx context.Context) (*services, error) {
	// DB
	pool, err := db.NewPool(ctx, db.NewConfig())
	if err != nil {
		return nil, err
	}
	uowFactory := db.NewUoWFactory(pool)
	storeRepo := repo.NewStoreRepo(uowFactory)

	// Configs
	sites := config.NewSitesConfig()
	pipelineConfig := config.NewPipelineConfig()
	progressConfig := config.NewProgressConfig()
	cliConfig := config.NewHostingCLIConfig()

	files, err := sitegen.NewGenerator(sites.Root)
	if err != nil {
		pool.Close()
		return nil, err
	}
	executor := runner.NewOSExecutor(cliConfig.Timeout, cliConfig.Token)

	var platform interfaces.HostingPlatform
	var checker interfaces.DomainChecker
	provider := config.HostingProvider()
	if provider == consts.HostingProviderAWS || env.GetBool("DOMAIN_CHECK_AWS", false) {
		cfg, err := awsConfig.LoadDefaultConfig(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("can't load aws config, %v", err)
		}
		checker = awshost.NewDomainRegistry(cfg)
		if provider == consts.HostingProviderAWS {
			awsHostConfig := awshost.NewConfig()
			awsHostConfig.BaseDomain = sites.BaseDomain
			platform = awshost.NewPlatform(awsHostConfig, cfg)
		}
	}
	switch provider {
	case consts.HostingProviderAWS:
	case consts.HostingProviderCLI:
		platform = hosting.NewCLIPlatform(cliConfig, executor)
	default:
		pool.Close()
		return nil, fmt.Errorf("unknown hosting provider %q", provider)
	}
	slog.Info("hosting provider selected", "provider", provider, "sites", sites.Root)

	git := vcs.NewGit(config.NewVCSConfig(sites), executor)
	pipeline := publish.NewPipeline(
		publish.Config{
			VerifyAttempts: pipelineConfig.VerifyAttempts,
			VerifyInterval: pipelineConfig.VerifyInterval,
			URLScheme:      pipelineConfig.Verify.Scheme,
		},
		git,
		platform,
		verify.NewHTTPVerifier(pipelineConfig.Verify),
	)

	locks := lifecycle.NewLocks()
	deployer := lifecycle.NewDeployer(storeRepo, files, pipeline)
	registry := progress.NewRegistry(progressConfig.TTL)

	collection := &application.Collection{
		CreateStore: lifecycle.NewCreateStore(
			lifecycle.CreateConfig{BaseDomain: sites.BaseDomain, InsertAttempts: env.GetInt("CREATE_INSERT_ATTEMPTS", 3)},
			storeRepo, files, allocator.NewAllocator(storeRepo), deployer, locks,
		),
		RedeployStore: lifecycle.NewRedeployStore(storeRepo, files, deployer, locks),
		DeleteStore:   lifecycle.NewDeleteStore(storeRepo, files, git, platform, locks),
		GetStore:      query.NewGetStore(storeRepo),
		ListPages:     query.NewListPages(storeRepo),
		CheckDomain:   query.NewCheckDomain(storeRepo, checker),
		Progress:      registry,
	}
	return &services{collection: collection, sites: sites, uowFactory: uowFactory}, nil
}

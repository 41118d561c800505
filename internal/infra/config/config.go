package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/infra/hosting"
	"github.com/Builder-Lawyers/store-builder/internal/infra/vcs"
	"github.com/Builder-Lawyers/store-builder/internal/infra/verify"
	"github.com/Builder-Lawyers/store-builder/internal/presentation/router"
	"github.com/Builder-Lawyers/store-builder/pkg/env"
	"github.com/joho/godotenv"
)

// LoadDotEnv reads the given files (".env" when none) into the environment. Missing files
// are skipped and variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("can't load %s, %v", file, err)
		}
		slog.Info("loaded env file", "file", file)
	}
	return nil
}

type ServerConfig struct {
	Addr            string
	CORSOrigins     string
	ShutdownTimeout time.Duration
}

func NewServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            env.GetEnv("HTTP_ADDR", ":8080"),
		CORSOrigins:     env.GetEnv("CORS_ORIGINS", "*"),
		ShutdownTimeout: env.GetDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

type SitesConfig struct {
	Root       string
	BaseDomain string
}

func NewSitesConfig() SitesConfig {
	root := "sites"
	if wd, err := os.Getwd(); err == nil {
		root = filepath.Join(wd, "sites")
	}
	return SitesConfig{
		Root:       env.GetEnv("SITES_ROOT", root),
		BaseDomain: env.GetEnv("BASE_DOMAIN", "stores.local"),
	}
}

func NewVCSConfig(sites SitesConfig) vcs.Config {
	return vcs.Config{
		Binary:       env.GetEnv("GIT_BINARY", "git"),
		RepoDir:      env.GetEnv("GIT_REPO_DIR", sites.Root),
		Remote:       env.GetEnv("GIT_REMOTE", "origin"),
		Branch:       env.GetEnv("GIT_BRANCH", "main"),
		AuthorName:   env.GetEnv("GIT_AUTHOR_NAME", "store-builder"),
		AuthorEmail:  env.GetEnv("GIT_AUTHOR_EMAIL", "store-builder@localhost"),
		Timeout:      env.GetDuration("GIT_TIMEOUT", 60*time.Second),
		PushDisabled: env.GetBool("GIT_PUSH_DISABLED", false),
	}
}

func HostingProvider() consts.HostingProvider {
	return consts.HostingProvider(env.GetEnv("HOSTING_PROVIDER", string(consts.HostingProviderCLI)))
}

func NewHostingCLIConfig() hosting.CLIConfig {
	return hosting.CLIConfig{
		Binary:        env.GetEnv("HOSTING_CLI_BINARY", "vercel"),
		Token:         env.GetEnv("HOSTING_CLI_TOKEN", ""),
		Scope:         env.GetEnv("HOSTING_CLI_SCOPE", ""),
		Timeout:       env.GetDuration("HOSTING_CLI_TIMEOUT", 60*time.Second),
		DeployTimeout: env.GetDuration("HOSTING_CLI_DEPLOY_TIMEOUT", 5*time.Minute),
	}
}

type PipelineConfig struct {
	Verify         verify.Config
	VerifyAttempts int
	VerifyInterval time.Duration
}

func NewPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Verify: verify.Config{
			Scheme:         env.GetEnv("VERIFY_SCHEME", "https"),
			RequestTimeout: env.GetDuration("VERIFY_REQUEST_TIMEOUT", 10*time.Second),
			UserAgent:      env.GetEnv("VERIFY_USER_AGENT", "store-builder-verifier"),
		},
		VerifyAttempts: env.GetInt("VERIFY_ATTEMPTS", 10),
		VerifyInterval: env.GetDuration("VERIFY_INTERVAL", 10*time.Second),
	}
}

type ProgressConfig struct {
	TTL   time.Duration
	Sweep string
}

func NewProgressConfig() ProgressConfig {
	return ProgressConfig{
		TTL:   env.GetDuration("PROGRESS_TTL", 10*time.Minute),
		Sweep: env.GetEnv("PROGRESS_SWEEP", "@every 30s"),
	}
}

func NewRouterConfig(sites SitesConfig) router.Config {
	return router.Config{
		Root:                sites.Root,
		BaseDomain:          env.GetEnv("ROUTER_BASE_DOMAIN", sites.BaseDomain),
		PassThroughHosts:    env.GetList("ROUTER_ADMIN_HOSTS", nil),
		PassThroughSuffixes: env.GetList("ROUTER_PASS_THROUGH_SUFFIXES", []string{".vercel.app"}),
		LegacyCaseFallback:  env.GetBool("ROUTER_LEGACY_CASE_FALLBACK", true),
	}
}

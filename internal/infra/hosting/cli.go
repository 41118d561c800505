package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/runner"
)

type CLIConfig struct {
	Binary        string
	Token         string
	Scope         string
	Timeout       time.Duration
	DeployTimeout time.Duration
}

// CLIPlatform drives a vercel-style hosting CLI.
type CLIPlatform struct {
	cfg  CLIConfig
	exec runner.Executor
}

var _ interfaces.HostingPlatform = (*CLIPlatform)(nil)

func NewCLIPlatform(cfg CLIConfig, exec runner.Executor) *CLIPlatform {
	return &CLIPlatform{cfg: cfg, exec: exec}
}

func (p *CLIPlatform) EnsureDomain(ctx context.Context, site dto.HostedSite) error {
	if _, err := p.run(ctx, p.cfg.Timeout, "", "domains", "inspect", site.Domain); err == nil {
		slog.Info("domain already registered", "domain", site.Domain)
		return nil
	}
	args := []string{"domains", "add", site.Domain}
	if site.Project != "" {
		args = append(args, site.Project)
	}
	if _, err := p.run(ctx, p.cfg.Timeout, "", args...); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && alreadyExists(exitErr.Result) {
			return nil
		}
		return fmt.Errorf("can't add domain %s, %w", site.Domain, err)
	}
	return nil
}

// Deploy returns the deployment url, the last url printed by the CLI.
func (p *CLIPlatform) Deploy(ctx context.Context, site dto.HostedSite) (string, error) {
	timeout := p.cfg.DeployTimeout
	if timeout <= 0 {
		timeout = p.cfg.Timeout
	}
	args := []string{"deploy", "--prod", "--yes", "--cwd", site.Dir}
	if site.Project != "" {
		args = append(args, "--name", site.Project)
	}
	result, err := p.run(ctx, timeout, site.Dir, args...)
	if err != nil {
		return "", fmt.Errorf("deployment failed, %w", err)
	}
	url := lastURL(result.Stdout)
	if url == "" {
		return "", fmt.Errorf("deployment output has no url: %q", strings.TrimSpace(result.Stdout))
	}
	return url, nil
}

func (p *CLIPlatform) Alias(ctx context.Context, deploymentURL string, site dto.HostedSite) error {
	if _, err := p.run(ctx, p.cfg.Timeout, "", "alias", "set", deploymentURL, site.Domain); err != nil {
		return fmt.Errorf("can't alias %s to %s, %w", deploymentURL, site.Domain, err)
	}
	return nil
}

func (p *CLIPlatform) RemoveAlias(ctx context.Context, site dto.HostedSite) error {
	return p.remove(ctx, "alias", "alias", "rm", site.Domain, "--yes")
}

func (p *CLIPlatform) RemoveDomain(ctx context.Context, site dto.HostedSite) error {
	return p.remove(ctx, "domain", "domains", "rm", site.Domain, "--yes")
}

func (p *CLIPlatform) RemoveProject(ctx context.Context, site dto.HostedSite) error {
	if site.Project == "" {
		return nil
	}
	return p.remove(ctx, "project", "project", "rm", site.Project)
}

func (p *CLIPlatform) PurgeCache(ctx context.Context, site dto.HostedSite) error {
	args := []string{"cache", "purge", "--yes"}
	if _, err := p.run(ctx, p.cfg.Timeout, site.Dir, args...); err != nil {
		return fmt.Errorf("can't purge cache for %s, %w", site.Domain, err)
	}
	return nil
}

// remove treats "not found" answers as success so teardown can be repeated.
func (p *CLIPlatform) remove(ctx context.Context, what string, args ...string) error {
	_, err := p.run(ctx, p.cfg.Timeout, "", args...)
	if err == nil {
		return nil
	}
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) && notFound(exitErr.Result) {
		slog.Info("nothing to remove", what, args[2])
		return nil
	}
	return fmt.Errorf("can't remove %s, %w", what, err)
}

func (p *CLIPlatform) run(ctx context.Context, timeout time.Duration, dir string, args ...string) (runner.Result, error) {
	if p.cfg.Token != "" {
		args = append(args, "--token", p.cfg.Token)
	}
	if p.cfg.Scope != "" {
		args = append(args, "--scope", p.cfg.Scope)
	}
	return p.exec.Run(ctx, runner.Command{
		Name:    p.cfg.Binary,
		Args:    args,
		Dir:     dir,
		Timeout: timeout,
	})
}

func lastURL(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			return line
		}
	}
	return ""
}

func notFound(result runner.Result) bool {
	output := strings.ToLower(result.Stdout + result.Stderr)
	return strings.Contains(output, "not found") || strings.Contains(output, "doesn't exist") ||
		strings.Contains(output, "does not exist")
}

func alreadyExists(result runner.Result) bool {
	output := strings.ToLower(result.Stdout + result.Stderr)
	return strings.Contains(output, "already")
}

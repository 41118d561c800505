package vcs

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

type Config struct {
	Binary      string
	RepoDir     string
	Remote      string
	Branch      string
	AuthorName  string
	AuthorEmail string
	Timeout     time.Duration
	// PushDisabled keeps commits local, used for setups without a remote.
	PushDisabled bool
}

type Git struct {
	cfg  Config
	exec runner.Executor
}

var _ interfaces.VersionControl = (*Git)(nil)

func NewGit(cfg Config, exec runner.Executor) *Git {
	return &Git{cfg: cfg, exec: exec}
}

func (g *Git) CommitAndPush(ctx context.Context, site dto.HostedSite, message string) error {
	if _, err := g.git(ctx, "add", "-A", "--", site.Key); err != nil {
		return fmt.Errorf("git add %s failed, %w", site.Key, err)
	}
	return g.commitAndPush(ctx, message)
}

func (g *Git) Remove(ctx context.Context, site dto.HostedSite, message string) error {
	if _, err := g.git(ctx, "rm", "-r", "-q", "--cached", "--ignore-unmatch", "--", site.Key); err != nil {
		return fmt.Errorf("git rm %s failed, %w", site.Key, err)
	}
	return g.commitAndPush(ctx, message)
}

func (g *Git) commitAndPush(ctx context.Context, message string) error {
	committed, err := g.commit(ctx, message)
	if err != nil {
		return err
	}
	if !committed {
		slog.Info("nothing to commit", "message", message)
	}
	if g.cfg.PushDisabled {
		return nil
	}
	if _, err = g.git(ctx, "push", g.cfg.Remote, g.cfg.Branch); err != nil {
		return fmt.Errorf("git push failed, %w", err)
	}
	return nil
}

func (g *Git) commit(ctx context.Context, message string) (bool, error) {
	args := []string{}
	if g.cfg.AuthorName != "" {
		args = append(args, "-c", "user.name="+g.cfg.AuthorName)
	}
	if g.cfg.AuthorEmail != "" {
		args = append(args, "-c", "user.email="+g.cfg.AuthorEmail)
	}
	args = append(args, "commit", "-m", message)

	_, err := g.git(ctx, args...)
	if err == nil {
		return true, nil
	}
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) && nothingToCommit(exitErr.Result) {
		return false, nil
	}
	return false, fmt.Errorf("git commit failed, %w", err)
}

func nothingToCommit(result runner.Result) bool {
	output := result.Stdout + result.Stderr
	return strings.Contains(output, "nothing to commit") || strings.Contains(output, "nothing added to commit")
}

func (g *Git) git(ctx context.Context, args ...string) (runner.Result, error) {
	return g.exec.Run(ctx, runner.Command{
		Name:    g.cfg.Binary,
		Args:    args,
		Dir:     g.cfg.RepoDir,
		Timeout: g.cfg.Timeout,
	})
}

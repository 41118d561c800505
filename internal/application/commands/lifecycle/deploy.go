package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

// Deployer takes a stored record to deployed: pages, files, publish, status. It is
// shared by create and redeploy; callers hold the store lock.
type Deployer struct {
	repo      interfaces.StoreRepo
	files     interfaces.SiteFiles
	publisher interfaces.Publisher
	now       func() time.Time
}

func NewDeployer(repo interfaces.StoreRepo, files interfaces.SiteFiles, publisher interfaces.Publisher) *Deployer {
	return &Deployer{repo: repo, files: files, publisher: publisher, now: time.Now}
}

func (d *Deployer) Run(ctx context.Context, store *db.Store, onProgress events.ProgressFunc) (*dto.PublishResult, error) {
	if err := d.repo.UpdateDeployment(ctx, store.ID, interfaces.DeploymentUpdate{
		DeploymentStatus: consts.DeploymentStatusDeploying,
	}); err != nil {
		err = fmt.Errorf("can't mark store %d deploying, %w", store.ID, err)
		d.markFailed(ctx, store, err)
		return nil, err
	}
	store.DeploymentStatus = consts.DeploymentStatusDeploying

	result, err := d.publish(ctx, store, onProgress)
	if err != nil {
		d.markFailed(ctx, store, err)
		return nil, err
	}

	active := consts.StoreStatusActive
	deployedAt := d.now()
	if err = d.repo.UpdateDeployment(ctx, store.ID, interfaces.DeploymentUpdate{
		DeploymentStatus: consts.DeploymentStatusDeployed,
		Status:           &active,
		DeployedAt:       &deployedAt,
		ClearLastError:   true,
	}); err != nil {
		err = fmt.Errorf("store %d published but status update failed, %w", store.ID, err)
		d.markFailed(ctx, store, err)
		return result, err
	}
	store.DeploymentStatus = consts.DeploymentStatusDeployed
	store.Status = active
	store.DeployedAt = &deployedAt
	store.LastDeployError = nil
	return result, nil
}

func (d *Deployer) publish(ctx context.Context, store *db.Store, onProgress events.ProgressFunc) (*dto.PublishResult, error) {
	onProgress.Report(consts.StagePages, "loading pages", 2)
	pages, err := d.ensurePages(ctx, store)
	if err != nil {
		return nil, errs.StageError{Stage: consts.StagePages, Err: err}
	}

	onProgress.Report(consts.StageGenerate, "generating site files", 5)
	dir, err := d.files.Generate(ctx, store, pages)
	if err != nil {
		return nil, errs.StageError{Stage: consts.StageGenerate, Err: err}
	}

	return d.publisher.Publish(ctx, store, dir, onProgress)
}

func (d *Deployer) ensurePages(ctx context.Context, store *db.Store) ([]db.StorePage, error) {
	pages, err := d.repo.ListPages(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		return pages, nil
	}
	defaults := DefaultPages(store)
	if err = d.repo.InsertPages(ctx, store.ID, defaults); err != nil {
		return nil, err
	}
	slog.Info("materialized default pages", "store", store.ID, "count", len(defaults))
	return d.repo.ListPages(ctx, store.ID)
}

func (d *Deployer) markFailed(ctx context.Context, store *db.Store, cause error) {
	failed := consts.StoreStatusFailed
	message := cause.Error()
	err := d.repo.UpdateDeployment(ctx, store.ID, interfaces.DeploymentUpdate{
		DeploymentStatus: consts.DeploymentStatusFailed,
		Status:           &failed,
		LastError:        &message,
	})
	if err != nil {
		slog.Error("can't record failed deployment", "store", store.ID, "cause", cause, "err", err)
		return
	}
	store.DeploymentStatus = consts.DeploymentStatusFailed
	store.Status = failed
	store.LastDeployError = &message

	var stageErr errs.StageError
	if errors.As(cause, &stageErr) {
		slog.Warn("deployment failed", "store", store.ID, "stage", stageErr.Stage, "err", stageErr.Err)
		return
	}
	slog.Warn("deployment failed", "store", store.ID, "err", cause)
}

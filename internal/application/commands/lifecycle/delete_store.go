package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/application/publish"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type DeleteStore struct {
	repo    interfaces.StoreRepo
	files   interfaces.SiteFiles
	vcs     interfaces.VersionControl
	hosting interfaces.HostingPlatform
	locks   *Locks
}

func NewDeleteStore(
	repo interfaces.StoreRepo, files interfaces.SiteFiles, vcs interfaces.VersionControl,
	hosting interfaces.HostingPlatform, locks *Locks,
) *DeleteStore {
	return &DeleteStore{repo: repo, files: files, vcs: vcs, hosting: hosting, locks: locks}
}

// Handle tears a store down in order: version control, hosting, files, dependent rows,
// record. Only the record removal is fatal, and it falls back to a single unit of work
// removing files, dependents and record before giving up.
func (c *DeleteStore) Handle(ctx context.Context, storeID uint64) (*dto.DeleteResult, error) {
	unlock := c.locks.Lock(storeID)
	defer unlock()

	store, err := c.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	site := dto.NewHostedSite(store, c.files.Dir(store.Domain))
	result := &dto.DeleteResult{StoreID: storeID}
	warn := func(step consts.TeardownStep, err error) {
		if err == nil {
			return
		}
		teardownErr := errs.TeardownError{Step: step, Err: err}
		slog.Warn("teardown step failed", "store", storeID, "step", step, "err", err)
		result.Warnings = append(result.Warnings, teardownErr.Error())
	}

	warn(consts.TeardownVCS, c.vcs.Remove(ctx, site, publish.CommitMessage(store.Subdomain, "delete", site.Domain)))

	warn(consts.TeardownHosting, c.hosting.RemoveAlias(ctx, site))
	warn(consts.TeardownHosting, c.hosting.RemoveDomain(ctx, site))
	warn(consts.TeardownHosting, c.hosting.RemoveProject(ctx, site))
	warn(consts.TeardownHosting, c.hosting.PurgeCache(ctx, site))

	warn(consts.TeardownFiles, c.files.Remove(store.Domain))
	warn(consts.TeardownDependents, c.repo.DeleteDependents(ctx, storeID))

	if err = c.repo.DeleteStore(ctx, storeID); err != nil {
		warn(consts.TeardownRecord, err)
		result.FallbackUsed = true
		if err = c.fallback(ctx, store); err != nil {
			return result, err
		}
	}

	slog.Info("store deleted", "store", storeID, "domain", store.Domain, "warnings", len(result.Warnings))
	return result, nil
}

func (c *DeleteStore) fallback(ctx context.Context, store *db.Store) error {
	slog.Warn("falling back to minimal teardown", "store", store.ID)
	filesErr := c.files.Remove(store.Domain)
	recordErr := c.repo.RemoveStore(ctx, store.ID)
	if err := errors.Join(filesErr, recordErr); err != nil {
		return errs.TeardownError{Step: consts.TeardownRecord, Err: err}
	}
	return nil
}

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
)

type RedeployStore struct {
	repo     interfaces.StoreRepo
	files    interfaces.SiteFiles
	deployer *Deployer
	locks    *Locks
}

func NewRedeployStore(repo interfaces.StoreRepo, files interfaces.SiteFiles, deployer *Deployer, locks *Locks) *RedeployStore {
	return &RedeployStore{repo: repo, files: files, deployer: deployer, locks: locks}
}

// Handle is a no-op for a deployed store whose files exist unless force is set.
func (c *RedeployStore) Handle(ctx context.Context, storeID uint64, force bool, onProgress events.ProgressFunc) (*dto.RedeployResult, error) {
	unlock := c.locks.Lock(storeID)
	defer unlock()

	store, err := c.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if !force && store.DeploymentStatus == consts.DeploymentStatusDeployed && c.files.Exists(store.Domain) {
		slog.Info("store already deployed, skipping", "store", storeID)
		return &dto.RedeployResult{Store: store, AlreadyDeployed: true}, nil
	}

	publish, err := c.deployer.Run(ctx, store, onProgress)
	if err != nil {
		return nil, err
	}
	return &dto.RedeployResult{Store: store, Publish: publish}, nil
}

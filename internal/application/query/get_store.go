package query

import (
	"context"

	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type GetStore struct {
	repo interfaces.StoreRepo
}

func NewGetStore(repo interfaces.StoreRepo) *GetStore {
	return &GetStore{repo: repo}
}

func (c *GetStore) Query(ctx context.Context, storeID uint64) (*dto.StoreResponse, error) {
	store, err := c.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStoreResponse(store)
	return &resp, nil
}

type ListPages struct {
	repo interfaces.StoreRepo
}

func NewListPages(repo interfaces.StoreRepo) *ListPages {
	return &ListPages{repo: repo}
}

// Query fails with errs.NotFoundError for an unknown store rather than returning no pages.
func (c *ListPages) Query(ctx context.Context, storeID uint64) ([]db.StorePage, error) {
	if _, err := c.repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	pages, err := c.repo.ListPages(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		pages = []db.StorePage{}
	}
	return pages, nil
}

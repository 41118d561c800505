package interfaces

import (
	"context"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
)

type StoreRepo interface {
	DomainExists(ctx context.Context, domain string) (bool, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	// InsertStore sets the generated ID. Unique violations surface as errs.ConflictError.
	InsertStore(ctx context.Context, store *db.Store) error
	GetStore(ctx context.Context, id uint64) (*db.Store, error)
	UpdateDeployment(ctx context.Context, id uint64, update DeploymentUpdate) error
	ListPages(ctx context.Context, storeID uint64) ([]db.StorePage, error)
	InsertPages(ctx context.Context, storeID uint64, pages []db.StorePage) error
	DeleteDependents(ctx context.Context, storeID uint64) error
	DeleteStore(ctx context.Context, storeID uint64) error
	// RemoveStore deletes dependents and the record in a single unit of work.
	RemoveStore(ctx context.Context, storeID uint64) error
}

// DeploymentUpdate changes status fields together. Nil Status keeps the current one.
type DeploymentUpdate struct {
	DeploymentStatus consts.DeploymentStatus
	Status           *consts.StoreStatus
	DeployedAt       *time.Time
	LastError        *string
	ClearLastError   bool
}

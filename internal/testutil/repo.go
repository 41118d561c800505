package testutil

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/google/uuid"
)

// MemoryStoreRepo enforces the same case-insensitive uniqueness as the database.
type MemoryStoreRepo struct {
	Journal *Journal

	DeleteStoreErr error
	RemoveStoreErr error
	DependentsErr  error
	// UpdateErr fails UpdateDeployment calls that set the given deployment status.
	UpdateErr map[consts.DeploymentStatus]error
	// InsertHook runs before the uniqueness check, e.g. to simulate a concurrent insert.
	InsertHook func(store *db.Store)

	mu      sync.Mutex
	nextID  uint64
	stores  map[uint64]*db.Store
	pages   map[uint64][]db.StorePage
	History map[uint64][]consts.DeploymentStatus
}

var _ interfaces.StoreRepo = (*MemoryStoreRepo)(nil)

func NewMemoryStoreRepo() *MemoryStoreRepo {
	return &MemoryStoreRepo{
		stores:  map[uint64]*db.Store{},
		pages:   map[uint64][]db.StorePage{},
		History: map[uint64][]consts.DeploymentStatus{},
	}
}

func (r *MemoryStoreRepo) DomainExists(_ context.Context, domain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if strings.EqualFold(s.Domain, domain) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryStoreRepo) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if strings.EqualFold(s.Subdomain, subdomain) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryStoreRepo) InsertStore(_ context.Context, store *db.Store) error {
	if r.InsertHook != nil {
		r.InsertHook(store)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if strings.EqualFold(s.Domain, store.Domain) {
			return errs.ConflictError{Kind: consts.ConflictDomain, Value: store.Domain}
		}
		if strings.EqualFold(s.Subdomain, store.Subdomain) {
			return errs.ConflictError{Kind: consts.ConflictSubdomain, Value: store.Subdomain}
		}
	}
	r.nextID++
	store.ID = r.nextID
	if store.UUID == uuid.Nil {
		store.UUID = uuid.New()
	}
	store.CreatedAt = time.Now()
	store.UpdatedAt = store.CreatedAt
	stored := *store
	r.stores[store.ID] = &stored
	r.History[store.ID] = append(r.History[store.ID], store.DeploymentStatus)
	return nil
}

// Put stores a record as is, bypassing checks.
func (r *MemoryStoreRepo) Put(store db.Store) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	store.ID = r.nextID
	r.stores[store.ID] = &store
	return store.ID
}

func (r *MemoryStoreRepo) GetStore(_ context.Context, id uint64) (*db.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, errs.NotFoundError{Entity: "store", ID: strconv.FormatUint(id, 10)}
	}
	out := *s
	return &out, nil
}

func (r *MemoryStoreRepo) UpdateDeployment(_ context.Context, id uint64, update interfaces.DeploymentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return errs.NotFoundError{Entity: "store", ID: strconv.FormatUint(id, 10)}
	}
	if err := r.UpdateErr[update.DeploymentStatus]; err != nil {
		return err
	}
	s.DeploymentStatus = update.DeploymentStatus
	if update.Status != nil {
		s.Status = *update.Status
	}
	if update.DeployedAt != nil {
		at := *update.DeployedAt
		s.DeployedAt = &at
	}
	if update.LastError != nil {
		msg := *update.LastError
		s.LastDeployError = &msg
	} else if update.ClearLastError {
		s.LastDeployError = nil
	}
	s.UpdatedAt = time.Now()
	r.History[id] = append(r.History[id], update.DeploymentStatus)
	return nil
}

func (r *MemoryStoreRepo) ListPages(_ context.Context, storeID uint64) ([]db.StorePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]db.StorePage(nil), r.pages[storeID]...), nil
}

func (r *MemoryStoreRepo) InsertPages(_ context.Context, storeID uint64, pages []db.StorePage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pages {
		duplicate := false
		for _, existing := range r.pages[storeID] {
			if existing.Slug == p.Slug {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		p.StoreID = storeID
		p.ID = uint64(len(r.pages[storeID]) + 1)
		r.pages[storeID] = append(r.pages[storeID], p)
	}
	return nil
}

func (r *MemoryStoreRepo) DeleteDependents(_ context.Context, storeID uint64) error {
	r.Journal.Add("repo.dependents " + strconv.FormatUint(storeID, 10))
	if r.DependentsErr != nil {
		return r.DependentsErr
	}
	r.mu.Lock()
	delete(r.pages, storeID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryStoreRepo) DeleteStore(_ context.Context, storeID uint64) error {
	r.Journal.Add("repo.delete " + strconv.FormatUint(storeID, 10))
	if r.DeleteStoreErr != nil {
		return r.DeleteStoreErr
	}
	r.mu.Lock()
	delete(r.stores, storeID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryStoreRepo) RemoveStore(_ context.Context, storeID uint64) error {
	r.Journal.Add("repo.remove " + strconv.FormatUint(storeID, 10))
	if r.RemoveStoreErr != nil {
		return r.RemoveStoreErr
	}
	r.mu.Lock()
	delete(r.pages, storeID)
	delete(r.stores, storeID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryStoreRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *MemoryStoreRepo) Statuses(id uint64) []consts.DeploymentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]consts.DeploymentStatus(nil), r.History[id]...)
}

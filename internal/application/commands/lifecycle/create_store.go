package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/internal/application/allocator"
	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/dto"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/go-playground/validator/v10"
)

const defaultInsertAttempts = 3

type CreateConfig struct {
	BaseDomain     string
	InsertAttempts int
}

type CreateStore struct {
	cfg       CreateConfig
	repo      interfaces.StoreRepo
	files     interfaces.SiteFiles
	allocator interfaces.SubdomainAllocator
	deployer  *Deployer
	locks     *Locks
	validate  *validator.Validate
}

func NewCreateStore(
	cfg CreateConfig, repo interfaces.StoreRepo, files interfaces.SiteFiles,
	allocator interfaces.SubdomainAllocator, deployer *Deployer, locks *Locks,
) *CreateStore {
	if cfg.InsertAttempts <= 0 {
		cfg.InsertAttempts = defaultInsertAttempts
	}
	return &CreateStore{
		cfg:       cfg,
		repo:      repo,
		files:     files,
		allocator: allocator,
		deployer:  deployer,
		locks:     locks,
		validate:  newValidator(),
	}
}

// Handle returns an error only when nothing was persisted. Once the record exists the
// deployment outcome is reported through CreateResult.PipelineErr.
func (c *CreateStore) Handle(ctx context.Context, req dto.CreateStoreRequest, onProgress events.ProgressFunc) (*dto.CreateResult, error) {
	if err := validateCreate(c.validate, &req); err != nil {
		return nil, err
	}

	store, err := c.insert(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("store created", "store", store.ID, "domain", store.Domain, "subdomain", store.Subdomain)

	unlock := c.locks.Lock(store.ID)
	defer unlock()

	result := &dto.CreateResult{Store: store}
	result.Publish, result.PipelineErr = c.deployer.Run(ctx, store, onProgress)
	return result, nil
}

func (c *CreateStore) insert(ctx context.Context, req dto.CreateStoreRequest) (*db.Store, error) {
	if req.Domain != "" {
		if err := c.checkDomain(ctx, dto.SiteKey(req.Domain)); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.InsertAttempts; attempt++ {
		subdomain, allocated, err := c.subdomain(ctx, req)
		var conflict errs.ConflictError
		if allocated && errors.As(err, &conflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		domain := dto.SiteKey(req.Domain)
		if domain == "" {
			domain = subdomain + "." + c.cfg.BaseDomain
			if err = c.checkDomain(ctx, domain); err != nil {
				// the allocation stays reserved so the next attempt moves past it
				lastErr = err
				continue
			}
		}

		store := newStore(req, domain, subdomain)
		err = c.repo.InsertStore(ctx, store)
		if err == nil {
			return store, nil
		}
		if allocated {
			c.allocator.Release(subdomain)
		}

		if allocated && errors.As(err, &conflict) && conflict.Kind == consts.ConflictSubdomain {
			slog.Warn("allocated subdomain taken at insert, retrying", "subdomain", subdomain, "attempt", attempt)
			lastErr = err
			continue
		}
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("can't insert store, %w", err)
	}
	return nil, lastErr
}

// subdomain normalizes a supplied subdomain or allocates one from the store name.
func (c *CreateStore) subdomain(ctx context.Context, req dto.CreateStoreRequest) (string, bool, error) {
	if req.Subdomain == "" {
		subdomain := c.allocator.Allocate(ctx, req.Name)
		exists, err := c.repo.SubdomainExists(ctx, subdomain)
		if err != nil {
			c.allocator.Release(subdomain)
			return "", false, fmt.Errorf("can't check subdomain, %w", err)
		}
		if exists {
			// taken since allocation; stays reserved so the next attempt moves past it
			slog.Warn("allocated subdomain no longer free", "subdomain", subdomain)
			return "", true, errs.ConflictError{Kind: consts.ConflictSubdomain, Value: subdomain}
		}
		return subdomain, true, nil
	}

	subdomain := allocator.Normalize(req.Subdomain)
	exists, err := c.repo.SubdomainExists(ctx, subdomain)
	if err != nil {
		return "", false, fmt.Errorf("can't check subdomain, %w", err)
	}
	if exists {
		return "", false, errs.ConflictError{Kind: consts.ConflictSubdomain, Value: subdomain}
	}
	return subdomain, false, nil
}

func (c *CreateStore) checkDomain(ctx context.Context, domain string) error {
	exists, err := c.repo.DomainExists(ctx, domain)
	if err != nil {
		return fmt.Errorf("can't check domain, %w", err)
	}
	if exists {
		return errs.ConflictError{Kind: consts.ConflictDomain, Value: domain}
	}
	if c.files.Exists(domain) {
		return errs.ConflictError{Kind: consts.ConflictFilesystem, Value: domain}
	}
	return nil
}

func newStore(req dto.CreateStoreRequest, domain, subdomain string) *db.Store {
	store := &db.Store{
		Name:             req.Name,
		Domain:           domain,
		Subdomain:        subdomain,
		Country:          req.Country,
		Language:         req.Language,
		Currency:         req.Currency,
		Status:           consts.StoreStatusSetup,
		DeploymentStatus: consts.DeploymentStatusPending,
	}
	if req.Config != nil {
		store.Config = db.ConfigToRawMessage(*req.Config)
	}
	return store
}

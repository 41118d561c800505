package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/internal/application/errs"
	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	dbs "github.com/Builder-Lawyers/store-builder/pkg/db"
	shared "github.com/Builder-Lawyers/store-builder/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const storeColumns = "id, uuid, name, domain, subdomain, country, language, currency, status, deployment_status, " +
	"config, last_deploy_error, created_at, updated_at, deployed_at"

type StoreRepo struct {
	uowFactory *dbs.UOWFactory
	q          shared.Querier
}

var _ interfaces.StoreRepo = (*StoreRepo)(nil)

func NewStoreRepo(uowFactory *dbs.UOWFactory) *StoreRepo {
	return &StoreRepo{uowFactory: uowFactory, q: uowFactory.Pool}
}

func (r *StoreRepo) DomainExists(ctx context.Context, domain string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM builder.stores WHERE lower(domain) = lower($1))", domain)
}

func (r *StoreRepo) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM builder.stores WHERE lower(subdomain) = lower($1))", subdomain)
}

func (r *StoreRepo) exists(ctx context.Context, query, value string) (bool, error) {
	var found bool
	if err := r.q.QueryRow(ctx, query, value).Scan(&found); err != nil {
		return false, fmt.Errorf("err checking existence, %v", err)
	}
	return found, nil
}

func (r *StoreRepo) InsertStore(ctx context.Context, store *db.Store) error {
	if store.UUID == uuid.Nil {
		store.UUID = uuid.New()
	}
	now := time.Now()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	store.UpdatedAt = now

	query := "INSERT INTO builder.stores(uuid, name, domain, subdomain, country, language, currency, status, " +
		"deployment_status, config, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id"
	err := r.q.QueryRow(ctx, query, store.UUID, store.Name, store.Domain, store.Subdomain, store.Country,
		store.Language, store.Currency, store.Status, store.DeploymentStatus, []byte(db.RawMessageOrEmpty(store.Config)),
		store.CreatedAt, store.UpdatedAt,
	).Scan(&store.ID)
	if err != nil {
		if conflict, ok := conflictFromPgError(err, store); ok {
			return conflict
		}
		return fmt.Errorf("insert failed: %v", err)
	}
	return nil
}

func conflictFromPgError(err error, store *db.Store) (errs.ConflictError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return errs.ConflictError{}, false
	}
	if strings.Contains(pgErr.ConstraintName, "subdomain") {
		return errs.ConflictError{Kind: consts.ConflictSubdomain, Value: store.Subdomain}, true
	}
	return errs.ConflictError{Kind: consts.ConflictDomain, Value: store.Domain}, true
}

func (r *StoreRepo) GetStore(ctx context.Context, id uint64) (*db.Store, error) {
	var store db.Store
	var config []byte
	err := r.q.QueryRow(ctx, "SELECT "+storeColumns+" FROM builder.stores WHERE id = $1", id).Scan(
		&store.ID, &store.UUID, &store.Name, &store.Domain, &store.Subdomain, &store.Country, &store.Language,
		&store.Currency, &store.Status, &store.DeploymentStatus, &config, &store.LastDeployError,
		&store.CreatedAt, &store.UpdatedAt, &store.DeployedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundError{Entity: "store", ID: strconv.FormatUint(id, 10)}
		}
		return nil, fmt.Errorf("err getting store, %v", err)
	}
	store.Config = config
	return &store, nil
}

func (r *StoreRepo) UpdateDeployment(ctx context.Context, id uint64, update interfaces.DeploymentUpdate) error {
	sets := []string{"deployment_status = $1", "updated_at = $2"}
	args := []any{update.DeploymentStatus, time.Now()}
	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if update.DeployedAt != nil {
		args = append(args, *update.DeployedAt)
		sets = append(sets, fmt.Sprintf("deployed_at = $%d", len(args)))
	}
	switch {
	case update.LastError != nil:
		args = append(args, *update.LastError)
		sets = append(sets, fmt.Sprintf("last_deploy_error = $%d", len(args)))
	case update.ClearLastError:
		sets = append(sets, "last_deploy_error = NULL")
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE builder.stores SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("err updating deployment status, %v", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFoundError{Entity: "store", ID: strconv.FormatUint(id, 10)}
	}
	return nil
}

func (r *StoreRepo) ListPages(ctx context.Context, storeID uint64) ([]db.StorePage, error) {
	rows, err := r.q.Query(ctx, "SELECT id, store_id, slug, title, body, position, created_at "+
		"FROM builder.store_pages WHERE store_id = $1 ORDER BY position, id", storeID)
	if err != nil {
		return nil, fmt.Errorf("err listing pages, %v", err)
	}
	defer rows.Close()

	var pages []db.StorePage
	for rows.Next() {
		var page db.StorePage
		if err = rows.Scan(&page.ID, &page.StoreID, &page.Slug, &page.Title, &page.Body, &page.Position, &page.CreatedAt); err != nil {
			return nil, fmt.Errorf("err scanning page, %v", err)
		}
		pages = append(pages, page)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading result sets, %v", err)
	}
	return pages, nil
}

func (r *StoreRepo) InsertPages(ctx context.Context, storeID uint64, pages []db.StorePage) (err error) {
	uow := r.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)

	batch := &pgx.Batch{}
	for _, page := range pages {
		createdAt := page.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		batch.Queue("INSERT INTO builder.store_pages(store_id, slug, title, body, position, created_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (store_id, slug) DO NOTHING",
			storeID, page.Slug, page.Title, page.Body, page.Position, createdAt)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("err inserting pages, %v", err)
	}
	return nil
}

func (r *StoreRepo) DeleteDependents(ctx context.Context, storeID uint64) (err error) {
	uow := r.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)

	return deleteDependents(ctx, tx, storeID)
}

func (r *StoreRepo) DeleteStore(ctx context.Context, storeID uint64) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM builder.stores WHERE id = $1", storeID); err != nil {
		return fmt.Errorf("err deleting store, %v", err)
	}
	return nil
}

func (r *StoreRepo) RemoveStore(ctx context.Context, storeID uint64) (err error) {
	uow := r.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)

	if err = deleteDependents(ctx, tx, storeID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, "DELETE FROM builder.stores WHERE id = $1", storeID); err != nil {
		return fmt.Errorf("err deleting store, %v", err)
	}
	return nil
}

func deleteDependents(ctx context.Context, q shared.Querier, storeID uint64) error {
	if _, err := q.Exec(ctx, "DELETE FROM builder.store_pages WHERE store_id = $1", storeID); err != nil {
		return fmt.Errorf("err deleting store pages, %v", err)
	}
	if _, err := q.Exec(ctx, "DELETE FROM builder.store_settings WHERE store_id = $1", storeID); err != nil {
		return fmt.Errorf("err deleting store settings, %v", err)
	}
	return nil
}

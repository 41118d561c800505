package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/pkg/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ interfaces.UoW = (*UOW)(nil)

type UOW struct {
	Pool *pgxpool.Pool
	Tx   pgx.Tx
}

func (u *UOW) Begin() (pgx.Tx, error) {
	tx, err := u.Pool.BeginTx(context.Background(), pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't begin tx, %v", err)
	}
	u.Tx = tx
	return u.Tx, nil
}

func (u *UOW) Commit() error {
	if u.Tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.Tx.Commit(context.Background())
}

func (u *UOW) Rollback() error {
	if u.Tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.Tx.Rollback(context.Background())
}

// Finalize commits when *err is nil and rolls back otherwise. A failed commit is
// reported through err.
func (u *UOW) Finalize(err *error) {
	if u.Tx == nil {
		return
	}
	if *err != nil {
		if rbErr := u.Rollback(); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("err rolling back tx", "err", rbErr)
		}
		return
	}
	if commitErr := u.Commit(); commitErr != nil {
		*err = fmt.Errorf("can't commit tx, %v", commitErr)
	}
}

type UOWFactory struct {
	Pool *pgxpool.Pool
}

func (u *UOWFactory) GetUoW() *UOW {
	return &UOW{
		Pool: u.Pool,
	}
}

func NewUoWFactory(pool *pgxpool.Pool) *UOWFactory {
	return &UOWFactory{
		Pool: pool,
	}
}

package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/Builder-Lawyers/store-builder/pkg/interfaces"
)

//go:embed schema.sql
var Schema string

// Migrate applies the schema; every statement is idempotent.
func Migrate(ctx context.Context, q interfaces.Querier) error {
	if _, err := q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("err applying schema, %v", err)
	}
	return nil
}

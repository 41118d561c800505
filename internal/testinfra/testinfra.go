//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupDB starts postgres, applies the schema and returns a pool plus a terminate func.
func SetupDB(ctx context.Context) (*pgxpool.Pool, func(), error) {
	pgC, err := postgres.Run(ctx, "postgres:17.2-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %v", err)
	}
	terminate := func() {
		if err := pgC.Terminate(context.Background()); err != nil {
			slog.Error("failed to terminate postgres", "err", err)
		}
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("postgres endpoint: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("pgxpool connect: %v", err)
	}

	ok := false
	for i := 0; i < 20; i++ {
		slog.Info("ping db", "try", i)
		ctxPing, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			ok = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("db did not respond after 20 attempts")
	}

	if err = db.Migrate(ctx, pool); err != nil {
		pool.Close()
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// SetupS3 starts localstack with s3 and returns an aws config pointing at it.
func SetupS3(ctx context.Context) (aws.Config, func(), error) {
	ls, err := localstack.Run(ctx,
		"localstack/localstack:1.4.0",
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}),
	)
	if err != nil {
		return aws.Config{}, nil, fmt.Errorf("failed to start localstack: %v", err)
	}
	terminate := func() {
		if err := ls.Terminate(context.Background()); err != nil {
			slog.Error("failed to terminate localstack", "err", err)
		}
	}

	host, err := ls.Host(ctx)
	if err != nil {
		terminate()
		return aws.Config{}, nil, fmt.Errorf("failed to get host: %v", err)
	}
	mappedPort, err := ls.MappedPort(ctx, "4566/tcp")
	if err != nil {
		terminate()
		return aws.Config{}, nil, fmt.Errorf("failed to get port: %v", err)
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		})),
	)
	if err != nil {
		terminate()
		return aws.Config{}, nil, fmt.Errorf("can't load aws config, %v", err)
	}
	cfg.BaseEndpoint = aws.String(fmt.Sprintf("http://%s:%s", host, mappedPort.Port()))

	return cfg, terminate, nil
}

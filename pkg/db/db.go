package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Builder-Lawyers/store-builder/pkg/env"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func NewConfig() Config {
	return Config{
		Host:     env.GetEnv("DB_HOST", "localhost"),
		Port:     env.GetEnv("DB_PORT", "5432"),
		User:     env.GetEnv("DB_USER", "postgres"),
		Password: env.GetEnv("DB_PASSWORD", "postgres"),
		Name:     env.GetEnv("DB_NAME", "builder"),
		SSLMode:  env.GetEnv("DB_SSLMODE", "disable"),
		MaxConns: int32(env.GetInt("DB_MAX_CONNS", 10)),
	}
}

func (c Config) GetDSN() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
	}
	q := dsn.Query()
	q.Set("sslmode", c.SSLMode)
	dsn.RawQuery = q.Encode()
	return dsn.String()
}

func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("can't parse db config, %v", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool, %v", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to db, %v", err)
	}
	return pool, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"cvstudio/internal/config"
	"cvstudio/internal/database"
)

// openStore 优先使用 --sqlite；否则按 API 服务相同的环境变量连接 PostgreSQL。
func openStore() (*database.Store, func(), error) {
	var (
		db  *gorm.DB
		err error
	)
	if sqliteDSN != "" {
		db, err = database.OpenSQLite(sqliteDSN)
	} else {
		var cfg config.DatabaseConfig
		cfg, err = databaseConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		db, err = database.InitDatabase(cfg)
		if err == nil {
			err = database.Migrate(db)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return database.NewStore(db), closeFn, nil
}

func databaseConfigFromEnv() (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:     envOr("DATABASE_HOST", "localhost"),
		Port:     5432,
		Name:     os.Getenv("POSTGRES_DB"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:  envOr("DATABASE_SSLMODE", "disable"),
	}
	if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			return cfg, fmt.Errorf("parse DATABASE_PORT: %w", err)
		}
		cfg.Port = p
	}
	if cfg.Name == "" {
		return cfg, errors.New("database name is required (POSTGRES_DB or --sqlite)")
	}
	if cfg.User == "" {
		return cfg, errors.New("database user is required (POSTGRES_USER or --sqlite)")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

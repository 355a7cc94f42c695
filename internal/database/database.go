package database

import (
	"fmt"
	"reflect"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cvstudio/internal/config"
)

// InitDatabase 使用配置初始化 PostgreSQL 连接，并返回 GORM 数据库实例。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}

	db, err := open(postgres.Open(cfg.DSN()), level)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// OpenSQLite 打开并迁移 SQLite 数据库，供测试以及
// 没有 PostgreSQL 时的 cvctl 使用。
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := open(sqlite.Open(dsn), logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 创建或更新所有表。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func open(dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := RegisterUTCCallbacks(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RegisterUTCCallbacks 在创建或更新行之前，把所有模型的
// time.Time 与 *time.Time 字段转换为 UTC。
func RegisterUTCCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("cvstudio:utc_create", normalizeTimes); err != nil {
		return fmt.Errorf("register create utc callback: %w", err)
	}
	if err := db.Callback().Update().Before("gorm:update").Register("cvstudio:utc_update", normalizeTimes); err != nil {
		return fmt.Errorf("register update utc callback: %w", err)
	}
	return nil
}

func normalizeTimes(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			normalizeRow(db, rv.Index(i))
		}
	case reflect.Struct:
		normalizeRow(db, rv)
	}
}

func normalizeRow(db *gorm.DB, row reflect.Value) {
	if reflect.Indirect(row).Kind() != reflect.Struct {
		return
	}
	ctx := db.Statement.Context
	for _, field := range db.Statement.Schema.Fields {
		value, isZero := field.ValueOf(ctx, row)
		if isZero {
			continue
		}
		switch t := value.(type) {
		case time.Time:
			if t.Location() != time.UTC {
				_ = field.Set(ctx, row, t.UTC())
			}
		case *time.Time:
			if t != nil && t.Location() != time.UTC {
				u := t.UTC()
				_ = field.Set(ctx, row, &u)
			}
		}
	}
}

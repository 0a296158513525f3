package db

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storebackend/internal/config"
)

// Connect は設定からDSNを組み立てて *gorm.DB を返す。
// DATABASE_URLが立っていればそちらを優先する（ホスティング環境向け）。
func Connect(cfg config.Config) (*gorm.DB, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		sslMode(),
	)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func sslMode() string {
	if v := os.Getenv("POSTGRES_SSLMODE"); v != "" {
		return v
	}
	return "disable"
}

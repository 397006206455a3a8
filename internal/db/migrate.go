package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/FaRaZ-32729/mushabaBackend/internal/config"
)

// Migrate applies pending SQL migrations from dir. No-op when the schema
// is already current.
func Migrate(cfg config.Config, dir string) error {
	url := cfg.PostgresURL
	if !strings.HasPrefix(url, "pgx5://") {
		url = strings.Replace(url, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"fmt"
)

const preAutoMigrateSQL = `CREATE SCHEMA IF NOT EXISTS news`

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.gdb.WithContext(ctx).Exec(preAutoMigrateSQL).Error; err != nil {
		return fmt.Errorf("execute pre-auto-migrate SQL: %w", err)
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	return nil
}

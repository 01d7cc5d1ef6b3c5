package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// translationRow is the gorm model of a stored entry.
type translationRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	Text        string `gorm:"not null"`
	Src         string `gorm:"size:16;not null"`
	Dst         string `gorm:"size:16;not null"`
	Translation string `gorm:"not null"`
	CreatedAt   time.Time
	ExpiresAt   *time.Time `gorm:"index"`
}

func (translationRow) TableName() string { return "translations" }

// PostgresStore keeps entries in a shared Postgres table, so several
// processes can reuse each other's translations.
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostgresStore connects with dsn and migrates the table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newGormStore(ctx, db)
}

func newGormStore(ctx context.Context, db *gorm.DB) (*PostgresStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&translationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	var row translationRow
	err := p.db.WithContext(ctx).Where("id = ?", key.ID()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e := Entry{
		Key:         Key{Text: row.Text, Src: row.Src, Dst: row.Dst},
		Translation: row.Translation,
		CreatedAt:   row.CreatedAt,
	}
	if row.ExpiresAt != nil {
		e.ExpiresAt = *row.ExpiresAt
	}
	if e.Expired(p.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, entry Entry) error {
	row := translationRow{
		ID:          entry.Key.ID(),
		Text:        entry.Key.Text,
		Src:         entry.Key.Src,
		Dst:         entry.Key.Dst,
		Translation: entry.Translation,
		CreatedAt:   entry.CreatedAt,
	}
	if !entry.ExpiresAt.IsZero() {
		exp := entry.ExpiresAt
		row.ExpiresAt = &exp
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"translation", "created_at", "expires_at"}),
	}).Create(&row).Error
}

func (p *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res := p.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&translationRow{})
	return int(res.RowsAffected), res.Error
}

func (p *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&translationRow{}).Count(&n).Error
	return int(n), err
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

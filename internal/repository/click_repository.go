package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ClickRepository interface {
	Record(ctx context.Context, click *models.Click) error
	GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error)
	GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error)
	ListByURL(ctx context.Context, urlID uuid.UUID) ([]models.Click, error)
	DeleteByURL(ctx context.Context, urlID uuid.UUID) error
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

// Record вставляет запись клика и инкрементирует счётчик ссылки
// в одной транзакции: либо обе записи, либо ни одной.
func (r *clickRepository) Record(ctx context.Context, click *models.Click) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO clicks (url_id, ip_address, user_agent, browser, os, device, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = tx.QueryRow(ctx, insertQuery,
		click.URLID,
		click.IPAddress,
		click.UserAgent,
		click.Browser,
		click.OS,
		click.Device,
		click.ClickedAt,
	).Scan(&click.ID)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	// Атомарный инкремент на стороне БД, без read-modify-write
	incrementQuery := `UPDATE urls SET clicks = clicks + 1 WHERE id = $1`

	result, err := tx.Exec(ctx, incrementQuery, click.URLID)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}

	return nil
}

func (r *clickRepository) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	query := `
		SELECT
			COUNT(c.id) as total_clicks,
			COUNT(DISTINCT c.ip_address) as unique_clicks
		FROM urls u
		LEFT JOIN clicks c ON c.url_id = u.id
		WHERE u.short_code = $1
	`

	stats := &models.ClickStats{
		ShortCode: shortCode,
	}

	err := r.db.Pool.QueryRow(ctx, query, shortCode).Scan(
		&stats.TotalClicks,
		&stats.UniqueClicks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get click stats: %w", err)
	}

	return stats, nil
}

func (r *clickRepository) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	query := `
		SELECT
			TO_CHAR(DATE(c.clicked_at), 'YYYY-MM-DD') as date,
			COUNT(*) as clicks
		FROM clicks c
		JOIN urls u ON c.url_id = u.id
		WHERE u.short_code = $1
			AND c.clicked_at >= NOW() - INTERVAL '1 day' * $2
		GROUP BY DATE(c.clicked_at)
		ORDER BY date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, shortCode, days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.DailyClickStats{}, nil
		}
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyClickStats
	for rows.Next() {
		var dailyStat models.DailyClickStats
		if err := rows.Scan(&dailyStat.Date, &dailyStat.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, dailyStat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}

func (r *clickRepository) ListByURL(ctx context.Context, urlID uuid.UUID) ([]models.Click, error) {
	query := `
		SELECT id, url_id, ip_address, user_agent, browser, os, device, clicked_at
		FROM clicks
		WHERE url_id = $1
		ORDER BY clicked_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, urlID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []models.Click
	for rows.Next() {
		var c models.Click
		if err := rows.Scan(
			&c.ID, &c.URLID, &c.IPAddress, &c.UserAgent,
			&c.Browser, &c.OS, &c.Device, &c.ClickedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

func (r *clickRepository) DeleteByURL(ctx context.Context, urlID uuid.UUID) error {
	query := `DELETE FROM clicks WHERE url_id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, urlID); err != nil {
		return fmt.Errorf("failed to delete clicks: %w", err)
	}
	return nil
}

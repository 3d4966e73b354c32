package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки репозиториев
var (
	ErrURLNotFound = errors.New("url not found")
	ErrCodeExists  = errors.New("short code already exists")
)

type URLRepository interface {
	Create(ctx context.Context, url *models.ShortURL) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ShortURL, error)
	GetActiveByShortCode(ctx context.Context, code string) (*models.ShortURL, error)
	GetByLongURL(ctx context.Context, longURL string) (*models.ShortURL, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ShortURL, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, input *models.EditURLInput) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type urlRepository struct {
	db *PostgresDB
}

func NewURLRepository(db *PostgresDB) URLRepository {
	return &urlRepository{db: db}
}

const urlColumns = `id, short_code, long_url, title, custom_domain, is_active, clicks, user_id, created_at, updated_at`

func (r *urlRepository) Create(ctx context.Context, url *models.ShortURL) error {
	query := `
		INSERT INTO urls (id, short_code, long_url, title, custom_domain, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		url.ID,
		url.ShortCode,
		url.LongURL,
		url.Title,
		url.CustomDomain,
		url.UserID,
	).Scan(&url.CreatedAt, &url.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create url: %w", err)
	}

	url.IsActive = true
	return nil
}

func (r *urlRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ShortURL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE id = $1`
	return r.scanRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *urlRepository) GetActiveByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1 AND is_active = TRUE`
	return r.scanRow(r.db.Pool.QueryRow(ctx, query, code))
}

// GetByLongURL возвращает существующую запись для longUrl (дедупликация)
func (r *urlRepository) GetByLongURL(ctx context.Context, longURL string) (*models.ShortURL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE long_url = $1 LIMIT 1`
	return r.scanRow(r.db.Pool.QueryRow(ctx, query, longURL))
}

func (r *urlRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ShortURL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []models.ShortURL
	for rows.Next() {
		var u models.ShortURL
		if err := rows.Scan(
			&u.ID, &u.ShortCode, &u.LongURL, &u.Title, &u.CustomDomain,
			&u.IsActive, &u.Clicks, &u.UserID, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating urls: %w", err)
	}

	return urls, nil
}

func (r *urlRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

func (r *urlRepository) Update(ctx context.Context, id uuid.UUID, input *models.EditURLInput) error {
	query := `
		UPDATE urls
		SET long_url = COALESCE($2, long_url),
		    title = COALESCE($3, title),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, id, input.LongURL, input.Title)
	if err != nil {
		return fmt.Errorf("failed to update url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}
	return nil
}

func (r *urlRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE urls SET is_active = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to toggle url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}
	return nil
}

func (r *urlRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM urls WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}
	return nil
}

func (r *urlRepository) scanRow(row pgx.Row) (*models.ShortURL, error) {
	u := &models.ShortURL{}
	err := row.Scan(
		&u.ID, &u.ShortCode, &u.LongURL, &u.Title, &u.CustomDomain,
		&u.IsActive, &u.Clicks, &u.UserID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get url: %w", err)
	}
	return u, nil
}

// isUniqueViolation проверяет нарушение уникального ограничения (код 23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

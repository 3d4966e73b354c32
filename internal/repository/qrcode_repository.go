package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrQRCodeNotFound = errors.New("qr code not found")
	ErrQRCodeExists   = errors.New("qr code already exists")
)

type QRCodeRepository interface {
	Create(ctx context.Context, qr *models.QRCode) error
	GetByURL(ctx context.Context, urlID uuid.UUID) (*models.QRCode, error)
	DeleteByURL(ctx context.Context, urlID uuid.UUID) error
}

type qrCodeRepository struct {
	db *PostgresDB
}

func NewQRCodeRepository(db *PostgresDB) QRCodeRepository {
	return &qrCodeRepository{db: db}
}

func (r *qrCodeRepository) Create(ctx context.Context, qr *models.QRCode) error {
	query := `
		INSERT INTO qr_codes (url_id, image)
		VALUES ($1, $2)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, qr.URLID, qr.Image).Scan(&qr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrQRCodeExists
		}
		return fmt.Errorf("failed to create qr code: %w", err)
	}

	return nil
}

func (r *qrCodeRepository) GetByURL(ctx context.Context, urlID uuid.UUID) (*models.QRCode, error) {
	query := `SELECT url_id, image, created_at FROM qr_codes WHERE url_id = $1`

	qr := &models.QRCode{}
	err := r.db.Pool.QueryRow(ctx, query, urlID).Scan(&qr.URLID, &qr.Image, &qr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to get qr code: %w", err)
	}

	return qr, nil
}

// DeleteByURL идемпотентен: отсутствие QR-кода не ошибка
func (r *qrCodeRepository) DeleteByURL(ctx context.Context, urlID uuid.UUID) error {
	query := `DELETE FROM qr_codes WHERE url_id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, urlID); err != nil {
		return fmt.Errorf("failed to delete qr code: %w", err)
	}
	return nil
}

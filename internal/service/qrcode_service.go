package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// QRCodeService генерирует и хранит QR-коды коротких ссылок
type QRCodeService interface {
	Generate(ctx context.Context, urlID uuid.UUID) (string, error)
	Fetch(ctx context.Context, urlID uuid.UUID) (string, error)
	Delete(ctx context.Context, urlID uuid.UUID) error
}

type qrCodeService struct {
	urlRepo repository.URLRepository
	qrRepo  repository.QRCodeRepository
	baseURL string
}

func NewQRCodeService(urlRepo repository.URLRepository, qrRepo repository.QRCodeRepository, baseURL string) QRCodeService {
	return &qrCodeService{
		urlRepo: urlRepo,
		qrRepo:  qrRepo,
		baseURL: baseURL,
	}
}

// Generate кодирует короткую ссылку в PNG 256x256 и сохраняет в хранилище.
// Для деактивированной ссылки QR-код не выпускается.
func (s *qrCodeService) Generate(ctx context.Context, urlID uuid.UUID) (string, error) {
	url, err := s.urlRepo.GetByID(ctx, urlID)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !url.IsActive {
		return "", ErrNotFound
	}

	if _, err := s.qrRepo.GetByURL(ctx, urlID); err == nil {
		return "", ErrConflict
	} else if !errors.Is(err, repository.ErrQRCodeNotFound) {
		return "", err
	}

	target := s.baseURL + "/" + url.ShortCode
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	qr := &models.QRCode{
		URLID: urlID,
		Image: png,
	}
	if err := s.qrRepo.Create(ctx, qr); err != nil {
		if errors.Is(err, repository.ErrQRCodeExists) {
			return "", ErrConflict
		}
		return "", err
	}

	return dataURI(png), nil
}

func (s *qrCodeService) Fetch(ctx context.Context, urlID uuid.UUID) (string, error) {
	qr, err := s.qrRepo.GetByURL(ctx, urlID)
	if err != nil {
		if errors.Is(err, repository.ErrQRCodeNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return dataURI(qr.Image), nil
}

func (s *qrCodeService) Delete(ctx context.Context, urlID uuid.UUID) error {
	if _, err := s.qrRepo.GetByURL(ctx, urlID); err != nil {
		if errors.Is(err, repository.ErrQRCodeNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.qrRepo.DeleteByURL(ctx, urlID)
}

func dataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortly/internal/auth"
	"github.com/SergeiKhy/shortly/internal/models"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService регистрация, вход и восстановление пароля.
// Одноразовые токены подтверждения идут через TokenService, письма
// через MailDispatcher; провал почты никогда не валит основную операцию.
type AuthService interface {
	SignUp(ctx context.Context, input *models.SignUpInput) (*models.User, error)
	VerifyEmail(ctx context.Context, userID uuid.UUID, token string) error
	ResendToken(ctx context.Context, userID uuid.UUID) error
	Login(ctx context.Context, input *models.LoginInput) (string, *models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type authService struct {
	userRepo repository.UserRepository
	tokens   TokenService
	mailer   MailDispatcher
	jwt      *auth.JWTManager
	logger   *zap.Logger
	tokenTTL time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenService,
	mailer MailDispatcher,
	jwt *auth.JWTManager,
	logger *zap.Logger,
	tokenTTL time.Duration,
) AuthService {
	if tokenTTL == 0 {
		tokenTTL = 5 * time.Minute
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		mailer:   mailer,
		jwt:      jwt,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

func (s *authService) SignUp(ctx context.Context, input *models.SignUpInput) (*models.User, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       uuid.New(),
		Email:    input.Email,
		UserName: input.UserName,
		Password: hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	// Провал выпуска токена не отменяет регистрацию: токен можно перевыпустить
	if err := s.issueAndMail(ctx, user, TokenEmailVerification); err != nil {
		s.logger.Warn("Не удалось выпустить токен подтверждения при регистрации",
			zap.String("email", user.Email),
			zap.Error(err),
		)
	}

	return user, nil
}

func (s *authService) VerifyEmail(ctx context.Context, userID uuid.UUID, token string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if user.IsVerified {
		return nil
	}

	if err := s.tokens.Validate(ctx, TokenEmailVerification, user.Email, token); err != nil {
		return err
	}

	if err := s.userRepo.SetVerified(ctx, user.ID); err != nil {
		return err
	}

	s.enqueueMail(ctx, &Email{
		To:      user.Email,
		Subject: "Congratulations! Your Email Address is Confirmed",
		Body:    fmt.Sprintf("Hi %s,\n\nYour email address is confirmed.", user.UserName),
	})

	return nil
}

// ResendToken повторно высылает токен подтверждения для неподтверждённого email
func (s *authService) ResendToken(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if user.IsVerified {
		return ErrConflict
	}

	return s.issueAndMail(ctx, user, TokenEmailVerification)
}

func (s *authService) Login(ctx context.Context, input *models.LoginInput) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Единый ответ: не раскрываем, существует ли email
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := auth.CheckPassword(user.Password, input.Password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	accessToken, _, err := s.jwt.GenerateToken(user.ID.String(), user.Email)
	if err != nil {
		return "", nil, err
	}

	return accessToken, user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	return s.issueAndMail(ctx, user, TokenPasswordReset)
}

func (s *authService) ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := s.tokens.Validate(ctx, TokenPasswordReset, user.Email, token); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.enqueueMail(ctx, &Email{
		To:      user.Email,
		Subject: "Password Reset is Successful",
		Body:    fmt.Sprintf("Hi %s,\n\nYour password reset is successful.", user.UserName),
	})

	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := auth.CheckPassword(user.Password, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, hash)
}

func (s *authService) issueAndMail(ctx context.Context, user *models.User, purpose TokenPurpose) error {
	token, err := s.tokens.Issue(ctx, purpose, user.Email, s.tokenTTL)
	if err != nil {
		return err
	}

	subject := "Confirm your Email Address"
	action := "confirm your email address"
	if purpose == TokenPasswordReset {
		subject = "Reset your Password"
		action = "reset your password"
	}

	s.enqueueMail(ctx, &Email{
		To:      user.Email,
		Subject: subject,
		Body:    fmt.Sprintf("Hi %s,\n\nUse code %s to %s. The code expires in %s.", user.UserName, token, action, s.tokenTTL),
	})

	return nil
}

func (s *authService) enqueueMail(ctx context.Context, msg *Email) {
	if err := s.mailer.Enqueue(ctx, msg); err != nil {
		s.logger.Warn("Не удалось поставить письмо в очередь",
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/repository"
)

// TextSanitizer は自由入力テキストの無害化インターフェース。
// security.TextSanitizerの部分集合として定義する。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// MetricsRecorder は認証失敗メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordAuthFailure(reason string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // bcryptのコストパラメータ（既定10）
}

// Service は認証に関するビジネスロジックを提供する。
// サインアップ・ログイン・トークンからのIdentity解決を担う。
type Service struct {
	userRepo  repository.UserRepository
	tokens    *TokenService
	sanitizer TextSanitizer
	metrics   MetricsRecorder
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokens *TokenService,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		sanitizer: sanitizer,
		metrics:   metrics,
		config:    config,
	}
}

// SignupInput はサインアップの入力スキーマ。
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Country  string
}

// Signup は新規ユーザーを登録し、認証トークンを発行する。
// メールアドレス重複時はEMAIL_TAKENエラーを返す。
func (s *Service) Signup(ctx context.Context, input SignupInput) (*model.User, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Country = strings.TrimSpace(input.Country)

	if s.sanitizer != nil {
		input.Name = s.sanitizer.SanitizeText(input.Name)
		input.Country = s.sanitizer.SanitizeText(input.Country)
	}

	if input.Name == "" {
		return nil, "", model.NewValidationError("名前は必須です")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, "", model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(input.Password) < 8 {
		return nil, "", model.NewValidationError("パスワードは8文字以上で指定してください")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Country:      input.Country,
		ProjectIDs:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", model.NewEmailTakenError()
		}
		return nil, "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// Login はメールアドレスとパスワードを検証し、認証トークンを発行する。
// メールアドレス未登録とパスワード不一致は同一のエラーを返す（存在の漏洩防止）。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", model.NewInvalidCredentialsError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// ResolveIdentity はトークンを検証し、埋め込まれたユーザーのIdentityを返す。
// トークンに対応するユーザーが存在しない場合はログとメトリクス上で区別するが、
// 外部には無効トークンと同じ401として返す。
func (s *Service) ResolveIdentity(ctx context.Context, tokenString string) (*model.Identity, error) {
	userID, err := s.tokens.Resolve(tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			if s.metrics != nil {
				s.metrics.RecordAuthFailure("token_expired")
			}
			return nil, model.NewTokenExpiredError()
		}
		if s.metrics != nil {
			s.metrics.RecordAuthFailure("invalid_token")
		}
		return nil, model.NewInvalidTokenError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		// 有効なトークンだがユーザーが既に存在しない（退会後など）。
		slog.Warn("token resolved but user not found",
			slog.String("user_id", userID),
		)
		if s.metrics != nil {
			s.metrics.RecordAuthFailure("user_not_found")
		}
		return nil, model.NewInvalidTokenError()
	}

	return model.IdentityFromUser(user), nil
}

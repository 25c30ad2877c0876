package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/takumi/taskdeck/internal/metrics"
	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) UpdateProjectIDs(ctx context.Context, userID string, projectIDs []string) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func newTestService(userRepo *mockUserRepo) *Service {
	tokens := NewTokenService([]byte("test-secret"), time.Hour)
	return NewService(userRepo, tokens, nil, nil, ServiceConfig{BcryptCost: bcrypt.MinCost})
}

func validSignupInput() SignupInput {
	return SignupInput{
		Name:     "太郎",
		Email:    "taro@example.com",
		Password: "password123",
		Country:  "日本",
	}
}

// --- Signup ---

func TestService_Signup(t *testing.T) {
	var created *model.User

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(userRepo)

	user, token, err := svc.Signup(context.Background(), validSignupInput())
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if created == nil {
		t.Fatal("Createが呼ばれていない")
	}
	if user.ID == "" {
		t.Error("ユーザーIDが採番されていない")
	}
	if user.Email != "taro@example.com" {
		t.Errorf("Email = %q, want taro@example.com", user.Email)
	}
	// プロジェクトリストは空で初期化される
	if user.ProjectIDs == nil || len(user.ProjectIDs) != 0 {
		t.Errorf("ProjectIDs = %v, want empty slice", user.ProjectIDs)
	}
	// 平文パスワードは保存されない
	if user.PasswordHash == "password123" {
		t.Error("パスワードが平文のまま保存されている")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("パスワードハッシュが検証できない: %v", err)
	}

	// 発行されたトークンは本人のIdentityに解決できる
	if token == "" {
		t.Fatal("トークンが発行されていない")
	}
	userRepo.findByIDFn = func(ctx context.Context, id string) (*model.User, error) {
		return user, nil
	}
	identity, err := svc.ResolveIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if identity.UserID != user.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, user.ID)
	}
}

func TestService_Signup_NormalizesEmail(t *testing.T) {
	userRepo := &mockUserRepo{}
	svc := newTestService(userRepo)

	input := validSignupInput()
	input.Email = "  Taro@Example.COM  "

	user, _, err := svc.Signup(context.Background(), input)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if user.Email != "taro@example.com" {
		t.Errorf("Email = %q, want taro@example.com", user.Email)
	}
}

func TestService_Signup_Validation(t *testing.T) {
	tests := []struct {
		name  string
		patch func(input *SignupInput)
	}{
		{"名前が空", func(i *SignupInput) { i.Name = "  " }},
		{"メールアドレスが空", func(i *SignupInput) { i.Email = "" }},
		{"メールアドレスの形式不正", func(i *SignupInput) { i.Email = "not-an-email" }},
		{"パスワードが短い", func(i *SignupInput) { i.Password = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createCalled := false
			userRepo := &mockUserRepo{
				createFn: func(ctx context.Context, user *model.User) error {
					createCalled = true
					return nil
				},
			}
			svc := newTestService(userRepo)

			input := validSignupInput()
			tt.patch(&input)

			_, _, err := svc.Signup(context.Background(), input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("バリデーションエラーを返すべき: %v", err)
			}
			if createCalled {
				t.Error("バリデーション失敗時にCreateを呼ぶべきでない")
			}
		})
	}
}

func TestService_Signup_EmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(userRepo)

	_, _, err := svc.Signup(context.Background(), validSignupInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("EMAIL_TAKENエラーを返すべき: %v", err)
	}
}

// --- Login ---

func TestService_Login(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	stored := &model.User{ID: "user-1", Email: "taro@example.com", PasswordHash: string(hash)}

	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == "taro@example.com" {
				return stored, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(userRepo)

	user, token, err := svc.Login(context.Background(), "Taro@Example.com", "password123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want user-1", user.ID)
	}
	if token == "" {
		t.Error("トークンが発行されていない")
	}
}

// TestService_Login_InvalidCredentials はメール未登録とパスワード不一致が
// 同一のエラーに集約されることを検証する（存在の漏洩防止）。
func TestService_Login_InvalidCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	stored := &model.User{ID: "user-1", Email: "taro@example.com", PasswordHash: string(hash)}

	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == "taro@example.com" {
				return stored, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(userRepo)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"メールアドレス未登録", "unknown@example.com", "password123"},
		{"パスワード不一致", "taro@example.com", "wrong-password"},
		{"メールアドレスが空", "", "password123"},
		{"パスワードが空", "taro@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.email, tt.password)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("INVALID_CREDENTIALSエラーを返すべき: %v", err)
			}
		})
	}
}

// --- ResolveIdentity ---

func TestService_ResolveIdentity(t *testing.T) {
	stored := &model.User{ID: "user-1", ProjectIDs: []string{"p-1", "p-2"}}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return stored, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(userRepo)

	token, err := svc.tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	identity, err := svc.ResolveIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", identity.UserID)
	}
	if len(identity.ProjectIDs) != 2 {
		t.Errorf("ProjectIDs = %v, want [p-1 p-2]", identity.ProjectIDs)
	}
}

func TestService_ResolveIdentity_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.ResolveIdentity(context.Background(), "not-a-token")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidToken {
		t.Errorf("INVALID_TOKENエラーを返すべき: %v", err)
	}
}

func TestService_ResolveIdentity_ExpiredToken(t *testing.T) {
	userRepo := &mockUserRepo{}
	expired := NewTokenService([]byte("test-secret"), -time.Minute)
	svc := NewService(userRepo, expired, nil, nil, ServiceConfig{BcryptCost: bcrypt.MinCost})

	token, err := expired.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, err = svc.ResolveIdentity(context.Background(), token)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTokenExpired {
		t.Errorf("TOKEN_EXPIREDエラーを返すべき: %v", err)
	}
}

// authFailureValue はレジストリから指定理由の認証失敗カウンタ値を取得する。
func authFailureValue(t *testing.T, reg *prometheus.Registry, reason string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "taskdeck_auth_failure_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetLabel()[0].GetValue() == reason {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// TestService_ResolveIdentity_RecordsFailureMetrics は解決失敗の各経路で
// 認証失敗カウンタが理由別に記録されることを検証する。
func TestService_ResolveIdentity_RecordsFailureMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	tokens := NewTokenService([]byte("test-secret"), time.Hour)
	svc := NewService(&mockUserRepo{}, tokens, nil, collector, ServiceConfig{BcryptCost: bcrypt.MinCost})

	// 不正なトークン
	if _, err := svc.ResolveIdentity(context.Background(), "not-a-token"); err == nil {
		t.Fatal("不正トークンでエラーを返すべき")
	}
	if got := authFailureValue(t, reg, "invalid_token"); got != 1 {
		t.Errorf("auth_failure_total{reason=invalid_token} = %v, want 1", got)
	}

	// 有効なトークンだがユーザーが存在しない
	token, err := tokens.Issue("user-gone")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := svc.ResolveIdentity(context.Background(), token); err == nil {
		t.Fatal("ユーザー不在でエラーを返すべき")
	}
	if got := authFailureValue(t, reg, "user_not_found"); got != 1 {
		t.Errorf("auth_failure_total{reason=user_not_found} = %v, want 1", got)
	}

	// 期限切れトークン
	expiredTokens := NewTokenService([]byte("test-secret"), -time.Minute)
	expiredSvc := NewService(&mockUserRepo{}, expiredTokens, nil, collector, ServiceConfig{BcryptCost: bcrypt.MinCost})
	expiredToken, err := expiredTokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := expiredSvc.ResolveIdentity(context.Background(), expiredToken); err == nil {
		t.Fatal("期限切れトークンでエラーを返すべき")
	}
	if got := authFailureValue(t, reg, "token_expired"); got != 1 {
		t.Errorf("auth_failure_total{reason=token_expired} = %v, want 1", got)
	}
}

// TestService_ResolveIdentity_DeletedUser は退会済みユーザーの有効トークンが
// 無効トークンとして扱われることを検証する。
func TestService_ResolveIdentity_DeletedUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	token, err := svc.tokens.Issue("user-gone")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, err = svc.ResolveIdentity(context.Background(), token)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidToken {
		t.Errorf("INVALID_TOKENエラーを返すべき: %v", err)
	}
}

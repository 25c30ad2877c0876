// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/repository"
)

// TextSanitizer は自由入力テキストの無害化インターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// ServiceConfig はユーザーサービスの設定。
type ServiceConfig struct {
	BcryptCost int // パスワード変更時のbcryptコスト（既定10）
}

// Service はユーザー管理のサービス層。
// プロフィール更新と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	sanitizer   TextSanitizer
	config      ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	sanitizer TextSanitizer,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		sanitizer:   sanitizer,
		config:      config,
	}
}

// ProfilePatch はプロフィール部分更新の入力スキーマ。
// nilフィールドは変更しない。メールアドレスは変更不可。
type ProfilePatch struct {
	Name     *string
	Country  *string
	Password *string
}

// Get は最新のユーザーレコードを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewResourceNotFoundError("ユーザー")
	}
	return user, nil
}

// UpdateProfile はユーザーのプロフィールを部分更新する。
// パスワードを含む場合は再ハッシュして保存する。
func (s *Service) UpdateProfile(ctx context.Context, identity *model.Identity, patch ProfilePatch) (*model.User, error) {
	user, err := s.Get(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if s.sanitizer != nil {
			name = s.sanitizer.SanitizeText(name)
		}
		if name == "" {
			return nil, model.NewValidationError("名前は必須です")
		}
		user.Name = name
	}
	if patch.Country != nil {
		country := strings.TrimSpace(*patch.Country)
		if s.sanitizer != nil {
			country = s.sanitizer.SanitizeText(country)
		}
		user.Country = country
	}
	if patch.Password != nil {
		if len(*patch.Password) < 8 {
			return nil, model.NewValidationError("パスワードは8文字以上で指定してください")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 所有プロジェクトはタスク共々カスケード削除する（孤立させない）。
// 削除順序: 各プロジェクトのtasks → projectレコード → userレコード。
// リストに載らない孤立プロジェクトも owner_id 検索で拾って削除する。
func (s *Service) Withdraw(ctx context.Context, identity *model.Identity) error {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewResourceNotFoundError("ユーザー")
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", user.ID),
	)

	// リスト掲載分と owner_id 一致分を合わせて削除対象にする
	targets := make(map[string]bool, len(user.ProjectIDs))
	for _, id := range user.ProjectIDs {
		targets[id] = true
	}
	owned, err := s.projectRepo.ListByOwnerID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("所有プロジェクトの取得に失敗しました: %w", err)
	}
	for _, p := range owned {
		targets[p.ID] = true
	}

	for projectID := range targets {
		if err := s.taskRepo.DeleteByProjectID(ctx, projectID); err != nil {
			return fmt.Errorf("タスクのカスケード削除に失敗しました: %w", err)
		}
		if err := s.projectRepo.DeleteByID(ctx, projectID); err != nil {
			return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
		}
	}

	if err := s.userRepo.DeleteByID(ctx, user.ID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", user.ID),
		slog.Int("deleted_projects", len(targets)),
	)

	return nil
}

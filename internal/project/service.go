// Package project はプロジェクト管理のドメインロジックを提供する。
//
// プロジェクトの作成・削除は「projectsテーブルへの書き込み」と
// 「所有者のproject_idsリストの更新」の2段階書き込みで、原子性はない。
// 途中で失敗した場合のズレ（リストに残った欠落ID、リストに載らない孤立
// プロジェクト）は、一覧取得時に遅延修復する（prune / re-append）。
// リスト長は上限4なので、アクセス時修復のみで十分とする。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/ownership"
	"github.com/takumi/taskdeck/internal/repository"
)

// TextSanitizer は自由入力テキストの無害化インターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// MetricsRecorder は修復・クォータ関連メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordQuotaRejection()
	RecordListPrune(count int)
	RecordOrphanReappend(count int)
}

// ServiceConfig はプロジェクトサービスの設定。
type ServiceConfig struct {
	Quota int // ユーザーあたりのプロジェクト数上限（既定4）
}

// Service はプロジェクト管理のサービス層。
// クォータ制御、冪等な完了、カスケード削除、自己修復する一覧取得を提供する。
type Service struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	sanitizer   TextSanitizer
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.Quota == 0 {
		config.Quota = model.MaxProjectsPerUser
	}
	return &Service{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
	}
}

// Create は新しいプロジェクトを作成し、所有者のリストにIDを追加する。
// リストが上限に達している場合はストアを変更せずクォータ超過エラーを返す。
func (s *Service) Create(ctx context.Context, identity *model.Identity, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if s.sanitizer != nil {
		name = s.sanitizer.SanitizeText(name)
		description = s.sanitizer.SanitizeText(description)
	}
	if name == "" {
		return nil, model.NewValidationError("プロジェクト名は必須です")
	}
	if description == "" {
		return nil, model.NewValidationError("プロジェクトの説明は必須です")
	}

	// クォータ判定はIdentityのスナップショットではなく最新のリストで行う
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", identity.UserID)
	}

	if len(user.ProjectIDs) >= s.config.Quota {
		if s.metrics != nil {
			s.metrics.RecordQuotaRejection()
		}
		return nil, model.NewQuotaExceededError(s.config.Quota)
	}

	now := time.Now()
	project := &model.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      model.ProjectStatusActive,
		OwnerID:     user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 2段階書き込み: プロジェクトレコードが正。リスト追加が失敗した場合は
	// 次回の一覧取得時にre-appendで修復される。
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	updated := ownership.Append(user.ProjectIDs, project.ID)
	if err := s.userRepo.UpdateProjectIDs(ctx, user.ID, updated); err != nil {
		slog.Warn("project created but owner list append failed; will be repaired on next list read",
			slog.String("user_id", user.ID),
			slog.String("project_id", project.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("所有リストの更新に失敗しました: %w", err)
	}

	slog.Info("project created",
		slog.String("user_id", user.ID),
		slog.String("project_id", project.ID),
	)

	return project, nil
}

// Complete はプロジェクトを完了状態にする。
// 既に完了済みの場合は状態を変更せずそのまま返す（冪等）。
func (s *Service) Complete(ctx context.Context, identity *model.Identity, projectID string) (*model.Project, error) {
	project, err := s.resolveOwned(ctx, identity, projectID)
	if err != nil {
		return nil, err
	}

	if project.Status == model.ProjectStatusCompleted {
		return project, nil
	}

	now := time.Now()
	project.Status = model.ProjectStatusCompleted
	project.CompletedAt = &now

	if err := s.projectRepo.UpdateStatus(ctx, project); err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}

	return project, nil
}

// Delete はプロジェクトを削除する。
// 削除順序: (a) 属するタスクを全削除 → (b) プロジェクトレコードを削除 →
// (c) 所有者リストからIDを除去。途中で中断した場合のリスト残骸は
// 次回一覧取得時にpruneで修復される。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, projectID string) (*model.Project, error) {
	project, err := s.resolveOwned(ctx, identity, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.DeleteByProjectID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("タスクのカスケード削除に失敗しました: %w", err)
	}

	if err := s.projectRepo.DeleteByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	if err := s.removeFromOwnerList(ctx, identity.UserID, projectID); err != nil {
		return nil, err
	}

	slog.Info("project deleted",
		slog.String("user_id", identity.UserID),
		slog.String("project_id", projectID),
	)

	return project, nil
}

// Get はプロジェクトを取得する。
// リストに載っているのにレコードが存在しない場合は、リストから剪定した上で
// 未検出エラーを返す（黙って成功扱いにはしない）。
func (s *Service) Get(ctx context.Context, identity *model.Identity, projectID string) (*model.Project, error) {
	return s.resolveOwned(ctx, identity, projectID)
}

// ListForOwner は所有者のプロジェクト一覧をリスト順で返す。
// 読み取り時修復:
//   - 解決できないIDはリストから剪定する（write-back）
//   - owner_idが一致するのにリストに載っていない孤立プロジェクトは
//     リスト末尾に再追加する（プロジェクトレコードが正）。
//     ただし再追加はクォータを超えない範囲に留める
func (s *Service) ListForOwner(ctx context.Context, identity *model.Identity) ([]*model.Project, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", identity.UserID)
	}

	resolved, err := s.projectRepo.FindByIDs(ctx, user.ProjectIDs)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	byID := make(map[string]*model.Project, len(resolved))
	existing := make(map[string]bool, len(resolved))
	for _, p := range resolved {
		byID[p.ID] = p
		existing[p.ID] = true
	}

	kept, pruned := ownership.Prune(user.ProjectIDs, existing)

	// 孤立プロジェクトの検出（作成時のリスト追加が失敗したケース）
	owned, err := s.projectRepo.ListByOwnerID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("所有プロジェクトの取得に失敗しました: %w", err)
	}
	var orphans []*model.Project
	deferred := 0
	for _, p := range owned {
		if existing[p.ID] {
			continue
		}
		// リスト上限を超える修復は行わない。収容しきれない孤立は
		// 空きができた後の読み取りで再追加される。
		if len(kept) >= s.config.Quota {
			deferred++
			continue
		}
		orphans = append(orphans, p)
		kept = append(kept, p.ID)
		byID[p.ID] = p
	}
	if deferred > 0 {
		slog.Warn("orphan re-append deferred by quota",
			slog.String("user_id", user.ID),
			slog.Int("deferred", deferred),
		)
	}

	if len(pruned) > 0 || len(orphans) > 0 {
		if err := s.userRepo.UpdateProjectIDs(ctx, user.ID, kept); err != nil {
			// 修復の書き戻しに失敗しても一覧は返せる。次回アクセスで再試行される。
			slog.Warn("owner list repair write-back failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			slog.Info("owner list repaired",
				slog.String("user_id", user.ID),
				slog.Int("pruned", len(pruned)),
				slog.Int("reappended", len(orphans)),
			)
			if s.metrics != nil {
				if len(pruned) > 0 {
					s.metrics.RecordListPrune(len(pruned))
				}
				if len(orphans) > 0 {
					s.metrics.RecordOrphanReappend(len(orphans))
				}
			}
		}
	}

	results := make([]*model.Project, 0, len(kept))
	for _, id := range kept {
		results = append(results, byID[id])
	}
	return results, nil
}

// resolveOwned は所有チェックとレコード解決をまとめて行う。
// 非所有・存在しないIDはどちらも同一の未検出エラーに落とす。
func (s *Service) resolveOwned(ctx context.Context, identity *model.Identity, projectID string) (*model.Project, error) {
	if !ownership.OwnsProject(identity, projectID) {
		return nil, model.NewResourceNotFoundError("プロジェクト")
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		// リストには載っているがレコードがない。剪定して未検出を返す。
		if err := s.removeFromOwnerList(ctx, identity.UserID, projectID); err != nil {
			slog.Warn("dangling list entry prune failed",
				slog.String("user_id", identity.UserID),
				slog.String("project_id", projectID),
				slog.String("error", err.Error()),
			)
		} else if s.metrics != nil {
			s.metrics.RecordListPrune(1)
		}
		return nil, model.NewResourceNotFoundError("プロジェクト")
	}

	return project, nil
}

// removeFromOwnerList は所有者リストからprojectIDを除去して書き戻す。
// 既に含まれない場合の除去は何もしない（並行削除の冪等性）。
func (s *Service) removeFromOwnerList(ctx context.Context, userID, projectID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil
	}
	updated := ownership.Remove(user.ProjectIDs, projectID)
	if len(updated) == len(user.ProjectIDs) {
		return nil
	}
	if err := s.userRepo.UpdateProjectIDs(ctx, userID, updated); err != nil {
		return fmt.Errorf("所有リストの更新に失敗しました: %w", err)
	}
	return nil
}

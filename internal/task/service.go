// Package task はタスク管理のドメインロジックを提供する。
//
// すべての操作はプロジェクトの所有チェーンを再検証してから実行する。
// タスク単体の操作でも「プロジェクトの所有」と「タスクがそのプロジェクトに
// 属すること」を二重にチェックし、他プロジェクトのタスクIDを推測した
// 越境操作を防ぐ。
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/ownership"
	"github.com/takumi/taskdeck/internal/repository"
)

// ProjectResolver は所有チェック付きのプロジェクト解決インターフェース。
// project.Serviceの部分集合として定義する。非所有・存在しないプロジェクトは
// どちらも未検出エラーとして返る。
type ProjectResolver interface {
	Get(ctx context.Context, identity *model.Identity, projectID string) (*model.Project, error)
}

// TextSanitizer は自由入力テキストの無害化インターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// Patch はタスク部分更新の入力スキーマ。
// nilフィールドは変更しない。
type Patch struct {
	Title       *string
	Description *string
	Status      *string
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo  repository.TaskRepository
	projects  ProjectResolver
	sanitizer TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(taskRepo repository.TaskRepository, projects ProjectResolver, sanitizer TextSanitizer) *Service {
	return &Service{
		taskRepo:  taskRepo,
		projects:  projects,
		sanitizer: sanitizer,
	}
}

// Create は指定プロジェクト配下に新しいタスクを作成する。
// 初期状態はpending。
func (s *Service) Create(ctx context.Context, identity *model.Identity, projectID, title, description string) (*model.Task, error) {
	if _, err := s.projects.Get(ctx, identity, projectID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if s.sanitizer != nil {
		title = s.sanitizer.SanitizeText(title)
		description = s.sanitizer.SanitizeText(description)
	}
	if title == "" {
		return nil, model.NewValidationError("タスクのタイトルは必須です")
	}
	if description == "" {
		return nil, model.NewValidationError("タスクの説明は必須です")
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      model.TaskStatusPending,
		ProjectID:   projectID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return task, nil
}

// Update はタスクを部分更新する。指定されたフィールドのみ変更する。
// statusはpending / completed以外を拒否する。
func (s *Service) Update(ctx context.Context, identity *model.Identity, projectID, taskID string, patch Patch) (*model.Task, error) {
	task, err := s.resolveBound(ctx, identity, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && !model.ValidTaskStatus(*patch.Status) {
		return nil, model.NewValidationError(fmt.Sprintf("無効なタスク状態です: %s", *patch.Status))
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if s.sanitizer != nil {
			title = s.sanitizer.SanitizeText(title)
		}
		if title == "" {
			return nil, model.NewValidationError("タスクのタイトルは必須です")
		}
		task.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if s.sanitizer != nil {
			description = s.sanitizer.SanitizeText(description)
		}
		if description == "" {
			return nil, model.NewValidationError("タスクの説明は必須です")
		}
		task.Description = description
	}
	if patch.Status != nil {
		task.Status = model.TaskStatus(*patch.Status)
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return task, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, projectID, taskID string) (*model.Task, error) {
	task, err := s.resolveBound(ctx, identity, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.DeleteByID(ctx, taskID); err != nil {
		return nil, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	return task, nil
}

// ListForProject はプロジェクトのタスク一覧を作成日時降順で返す。
func (s *Service) ListForProject(ctx context.Context, identity *model.Identity, projectID string) ([]*model.Task, error) {
	if _, err := s.projects.Get(ctx, identity, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// resolveBound はプロジェクトの所有チェックとタスクの帰属チェックをまとめて行う。
// どちらの失敗も同一の未検出エラーに落とす（存在の漏洩防止）。
func (s *Service) resolveBound(ctx context.Context, identity *model.Identity, projectID, taskID string) (*model.Task, error) {
	if _, err := s.projects.Get(ctx, identity, projectID); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if !ownership.BoundToProject(task, projectID) {
		return nil, model.NewResourceNotFoundError("タスク")
	}

	return task, nil
}

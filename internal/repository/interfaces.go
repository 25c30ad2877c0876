// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/takumi/taskdeck/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はユーザーの名前・国・パスワードハッシュを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error

	// UpdateProjectIDs はユーザーの所有プロジェクトIDリストを丸ごと置き換える。
	// リストの追加・削除・修復（write-back）はすべてこのメソッドで行う。
	UpdateProjectIDs(ctx context.Context, userID string, projectIDs []string) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// FindByIDs は指定IDのプロジェクトをまとめて取得する。
	// 解決できなかったIDは結果に含まれない（呼び出し側が欠落を検出する）。
	FindByIDs(ctx context.Context, ids []string) ([]*model.Project, error)

	// ListByOwnerID は owner_id が一致するプロジェクトを作成日時昇順で返す。
	// リストから欠落した孤立プロジェクトの検出に使用する。
	ListByOwnerID(ctx context.Context, ownerID string) ([]*model.Project, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// UpdateStatus はプロジェクトの状態と完了日時を更新する。
	UpdateStatus(ctx context.Context, project *model.Project) error

	// DeleteByID は指定IDのプロジェクトを削除する。
	// 存在しないIDの削除はエラーにしない（並行削除の冪等性のため）。
	DeleteByID(ctx context.Context, id string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListByProjectID はプロジェクトのタスク一覧を作成日時降順で返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクのタイトル・説明・状態を更新する。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByID は指定IDのタスクを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByProjectID はプロジェクトに属する全タスクを削除する。
	// プロジェクト削除時のカスケード削除で使用する。
	DeleteByProjectID(ctx context.Context, projectID string) error
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Task はプロジェクトに属するタスクを表す。
// ProjectID は必須の強参照で、タスクはプロジェクトより長く存続しない
// （プロジェクト削除時にカスケード削除される）。
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	ProjectID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskStatus はタスクの状態を表す。
// pending / completed の2状態を正とする。
type TaskStatus string

const (
	// TaskStatusPending は未完了のタスク状態。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusCompleted は完了したタスク状態。
	TaskStatusCompleted TaskStatus = "completed"
)

// ValidTaskStatus は文字列が有効なタスク状態かを判定する。
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Project はユーザーが所有するプロジェクトを表す。
// OwnerID は projects テーブル側の所有情報だが、認可判定には使わない。
// 認可は常に User.ProjectIDs のメンバーシップで行う。
type Project struct {
	ID          string
	Name        string
	Description string
	Status      ProjectStatus
	CompletedAt *time.Time
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectStatus はプロジェクトの状態を表す。
type ProjectStatus string

const (
	// ProjectStatusActive は進行中のプロジェクト状態。
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusCompleted は完了したプロジェクト状態。
	ProjectStatusCompleted ProjectStatus = "completed"
)

// MaxProjectsPerUser はユーザーが同時に所有できるプロジェクト数の既定上限。
const MaxProjectsPerUser = 4

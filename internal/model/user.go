// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ProjectIDs はユーザーが所有するプロジェクトIDの順序付きリストで、
// 所有判定（認可）の正とする情報源。projects テーブルの owner_id と
// 二重管理になっており、ズレは読み取り時に修復される。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Country      string
	ProjectIDs   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は認証済みリクエストに付与されるユーザーコンテキストを表す。
// トークン検証後にユーザーレコードから構築される。パスワードハッシュは含まない。
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Country    string
	ProjectIDs []string
}

// IdentityFromUser はユーザーレコードからIdentityを構築する。
// ProjectIDsはコピーして保持する（呼び出し側の変更から独立させるため）。
func IdentityFromUser(u *User) *Identity {
	ids := make([]string, len(u.ProjectIDs))
	copy(ids, u.ProjectIDs)
	return &Identity{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Country:    u.Country,
		ProjectIDs: ids,
	}
}

// Package ownership はプロジェクト・タスクの所有判定（認可）を提供する。
//
// 認可はリストメンバーシップ方式: 「ユーザーがプロジェクトXを所有するか」は
// User.ProjectIDs にXが含まれるかで判定し、projects テーブルの owner_id との
// JOINは行わない。同じ事実を二重に持つため projects 側とズレる可能性があり、
// そのズレは読み取り時の修復（prune / re-append）で解消する。
// リスト操作のヘルパーもこのパッケージに集約し、重複禁止・欠落IDの剪定と
// いったリスト不変条件をここで守る。
package ownership

import (
	"github.com/takumi/taskdeck/internal/model"
)

// OwnsProject はidentityがprojectIDのプロジェクトを所有するかを判定する。
// identity.ProjectIDs のメンバーシップ判定（リスト長は上限4なので線形探索で十分）。
func OwnsProject(identity *model.Identity, projectID string) bool {
	if identity == nil || projectID == "" {
		return false
	}
	return contains(identity.ProjectIDs, projectID)
}

// OwnsProjectOfTask はidentityがtaskの属するプロジェクトを所有するかを判定する。
// task.ProjectID を解決してOwnsProjectに委譲する派生チェック。
func OwnsProjectOfTask(identity *model.Identity, task *model.Task) bool {
	if task == nil {
		return false
	}
	return OwnsProject(identity, task.ProjectID)
}

// BoundToProject はtaskが指定プロジェクトに属するかを判定する。
// プロジェクト所有チェックを通過した後の、タスクID推測攻撃
// （他プロジェクトのタスクIDを自分のプロジェクト経由で操作する）への防御。
func BoundToProject(task *model.Task, projectID string) bool {
	return task != nil && task.ProjectID == projectID
}

// Append はリスト末尾にprojectIDを追加した新しいリストを返す。
// 既に含まれる場合は追加しない（重複禁止の不変条件）。
func Append(projectIDs []string, projectID string) []string {
	if contains(projectIDs, projectID) {
		return projectIDs
	}
	result := make([]string, 0, len(projectIDs)+1)
	result = append(result, projectIDs...)
	return append(result, projectID)
}

// Remove はリストからprojectIDを除いた新しいリストを返す。
// 含まれないIDの除去は何もしない（並行削除の冪等性）。
func Remove(projectIDs []string, projectID string) []string {
	result := make([]string, 0, len(projectIDs))
	for _, id := range projectIDs {
		if id != projectID {
			result = append(result, id)
		}
	}
	return result
}

// Prune はexistingに解決できなかったIDを除いた新しいリストと、
// 剪定されたIDを返す。リストの順序は保存する。
func Prune(projectIDs []string, existing map[string]bool) (kept []string, pruned []string) {
	kept = make([]string, 0, len(projectIDs))
	for _, id := range projectIDs {
		if existing[id] {
			kept = append(kept, id)
		} else {
			pruned = append(pruned, id)
		}
	}
	return kept, pruned
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Package modelsはTaskとUserを定義します。
package models

import (
	"strings"
	"time"
)

// Urgency はタスクの緊急度です。
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency は文字列を緊急度に変換します。大文字小文字は区別し、空文字は medium として扱います。
func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(strings.TrimSpace(s)) {
	case "":
		return UrgencyMedium, true
	case UrgencyLow:
		return UrgencyLow, true
	case UrgencyMedium:
		return UrgencyMedium, true
	case UrgencyHigh:
		return UrgencyHigh, true
	}
	return "", false
}

// Task はタスクを表します。UserID は作成時に設定され、以後変更されません。
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Urgency     Urgency   `json:"urgency"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskCreateRequest はタスク作成リクエストの構造体です。
type TaskCreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
}

// TaskFilter は一覧取得の絞り込み条件です。nil のフィールドは無視されます。
type TaskFilter struct {
	Urgency   *Urgency
	Completed *bool
}

// TaskPatch は部分更新の内容です。
type TaskPatch struct {
	Title       *string
	Description *string
	Urgency     *Urgency
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Urgency == nil && p.Completed == nil
}

// ParseTaskPatch はJSONボディから部分更新を組み立てます。
// 型が合わないフィールド、空のタイトル・説明、未知の緊急度は無視されます。
func ParseTaskPatch(body map[string]any) TaskPatch {
	var p TaskPatch
	if v, ok := body["title"].(string); ok {
		if title := strings.TrimSpace(v); title != "" {
			p.Title = &title
		}
	}
	if v, ok := body["description"].(string); ok {
		if desc := strings.TrimSpace(v); desc != "" {
			p.Description = &desc
		}
	}
	if v, ok := body["urgency"].(string); ok && strings.TrimSpace(v) != "" {
		if u, valid := ParseUrgency(v); valid {
			p.Urgency = &u
		}
	}
	if v, ok := body["completed"].(bool); ok {
		p.Completed = &v
	}
	return p
}

// Apply はパッチをタスクに適用します。
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Urgency != nil {
		t.Urgency = *p.Urgency
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

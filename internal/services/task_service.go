package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/internal/repositories"
)

// TaskService はTask関連のビジネスロジックを扱います。
type TaskService struct {
	taskRepo repositories.TaskRepository
	log      *slog.Logger
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(taskRepo repositories.TaskRepository, log *slog.Logger) *TaskService {
	return &TaskService{taskRepo: taskRepo, log: log}
}

// authorize は認証主体がタスクの所有者であることを確認します。変更・削除の前に必ず呼びます。
func authorize(identity *models.Identity, task *models.Task) error {
	if identity == nil || task.UserID != identity.UserID {
		return ErrForbidden
	}
	return nil
}

// ListTasks は認証主体のタスクを作成日時の新しい順で返します。
func (s *TaskService) ListTasks(ctx context.Context, identity *models.Identity, filter models.TaskFilter) ([]*models.Task, error) {
	return s.taskRepo.FindByOwner(ctx, identity.UserID, filter)
}

// CreateTask は新しいタスクを作成します。所有者は常に認証主体です。
func (s *TaskService) CreateTask(ctx context.Context, identity *models.Identity, req models.TaskCreateRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	urgency, ok := models.ParseUrgency(req.Urgency)
	if !ok {
		return nil, validationError("urgency must be one of low, medium, high")
	}

	created, err := s.taskRepo.Create(ctx, &models.Task{
		UserID:      identity.UserID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Urgency:     urgency,
		Completed:   false,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("task created", "task_id", created.ID, "user_id", identity.UserID)
	return created, nil
}

// GetTask は指定IDのタスクを取得し、認可チェックを行います。
func (s *TaskService) GetTask(ctx context.Context, identity *models.Identity, id string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(identity, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask はタスクを部分更新します。所有者の確認はフィールドを変更する前に行います。
func (s *TaskService) UpdateTask(ctx context.Context, identity *models.Identity, id string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.GetTask(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return task, nil
	}
	patch.Apply(task)
	return s.taskRepo.Update(ctx, task)
}

// DeleteTask はタスクを削除します。削除は永続的です。
func (s *TaskService) DeleteTask(ctx context.Context, identity *models.Identity, id string) error {
	if _, err := s.GetTask(ctx, identity, id); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Debug("task deleted", "task_id", id, "user_id", identity.UserID)
	return nil
}

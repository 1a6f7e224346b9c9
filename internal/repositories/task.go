package repositories

import (
	"context"
	"errors"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// ErrTaskNotFound はタスクが見つからない場合のエラーです。
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository はタスクの永続化を扱います。
// FindByOwner は作成日時の新しい順で返し、該当なしの場合は空スライスを返します。
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	FindByOwner(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// backend はバックエンドごとに同じ振る舞いを検証するための組です。
type backend struct {
	users UserRepository
	tasks TaskRepository
	// missingID は形式は正しいが存在しないIDです。
	missingID string
}

func runUserContract(t *testing.T, b backend) {
	ctx := context.Background()

	created, err := b.users.Create(ctx, &models.User{Name: "Ann", Email: " Ann@Example.com ", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ann@example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := b.users.Create(ctx, &models.User{Name: "Dup", Email: "ANN@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("find", func(t *testing.T) {
		byEmail, err := b.users.FindByEmail(ctx, "ann@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
		assert.Equal(t, "hash", byEmail.PasswordHash)

		byID, err := b.users.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", byID.Name)

		_, err = b.users.FindByID(ctx, b.missingID)
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = b.users.FindByID(ctx, "???")
		assert.ErrorIs(t, err, ErrInvalidID)
		_, err = b.users.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update", func(t *testing.T) {
		u := *created
		u.Name = "Annie"
		u.PasswordHash = "new-hash"
		updated, err := b.users.Update(ctx, &u)
		require.NoError(t, err)
		assert.Equal(t, "Annie", updated.Name)
		assert.Equal(t, "new-hash", updated.PasswordHash)
		assert.Equal(t, "ann@example.com", updated.Email)
	})
}

func runTaskContract(t *testing.T, b backend) {
	ctx := context.Background()

	owner, err := b.users.Create(ctx, &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	other, err := b.users.Create(ctx, &models.User{Name: "Other", Email: "other@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	create := func(userID, title string, urgency models.Urgency) *models.Task {
		task, err := b.tasks.Create(ctx, &models.Task{UserID: userID, Title: title, Urgency: urgency})
		require.NoError(t, err)
		return task
	}

	first := create(owner.ID, "first", models.UrgencyLow)
	second := create(owner.ID, "second", models.UrgencyHigh)
	create(other.ID, "foreign", models.UrgencyHigh)

	t.Run("find by owner", func(t *testing.T) {
		tasks, err := b.tasks.FindByOwner(ctx, owner.ID, models.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, second.ID, tasks[0].ID)
		assert.Equal(t, first.ID, tasks[1].ID)

		high := models.UrgencyHigh
		tasks, err = b.tasks.FindByOwner(ctx, owner.ID, models.TaskFilter{Urgency: &high})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, second.ID, tasks[0].ID)

		done := true
		tasks, err = b.tasks.FindByOwner(ctx, owner.ID, models.TaskFilter{Completed: &done})
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("update", func(t *testing.T) {
		task := *first
		task.Title = "first, edited"
		task.Completed = true
		task.UserID = other.ID
		updated, err := b.tasks.Update(ctx, &task)
		require.NoError(t, err)
		assert.Equal(t, "first, edited", updated.Title)
		assert.True(t, updated.Completed)
		assert.Equal(t, owner.ID, updated.UserID, "owner is immutable")
		assert.True(t, first.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.tasks.Delete(ctx, second.ID))
		assert.ErrorIs(t, b.tasks.Delete(ctx, second.ID), ErrTaskNotFound)
		_, err := b.tasks.FindByID(ctx, second.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
		assert.ErrorIs(t, b.tasks.Delete(ctx, "???"), ErrInvalidID)
		_, err = b.tasks.FindByID(ctx, b.missingID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestMemoryRepositories(t *testing.T) {
	newBackend := func() backend {
		return backend{
			users:     NewMemoryUserRepo(),
			tasks:     NewMemoryTaskRepo(),
			missingID: "7f1c5c9e-8d1a-4b7a-9a57-3b1de1c4f0aa",
		}
	}
	t.Run("users", func(t *testing.T) { runUserContract(t, newBackend()) })
	t.Run("tasks", func(t *testing.T) { runTaskContract(t, newBackend()) })
}

func TestMemoryTaskRepo_SameTimestampOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepo()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	a, err := repo.Create(ctx, &models.Task{UserID: "u", Title: "a"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &models.Task{UserID: "u", Title: "b"})
	require.NoError(t, err)

	tasks, err := repo.FindByOwner(ctx, "u", models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, b.ID, tasks[0].ID, "later insertion wins ties")
	assert.Equal(t, a.ID, tasks[1].ID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.NoError(t, VerifyPassword(hash, "password123"))
	assert.Error(t, VerifyPassword(hash, "password124"))
}

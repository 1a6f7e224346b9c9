package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// MemoryUserRepo はメモリ上のUserRepositoryです。開発とテスト用。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]models.User
	now   func() time.Time
}

// NewMemoryUserRepo は新しいMemoryUserRepoを作成します。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]models.User), now: time.Now}
}

func parseMemoryID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.users {
		if existing.Email == email {
			return nil, ErrDuplicateEmail
		}
	}

	now := r.now().UTC()
	created := *u
	created.ID = uuid.NewString()
	created.Email = email
	created.CreatedAt = now
	created.UpdatedAt = now
	r.users[created.ID] = created

	out := created
	return &out, nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	key, err := parseMemoryID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[key]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return nil, ErrUserNotFound
	}
	existing.Name = u.Name
	existing.PasswordHash = u.PasswordHash
	existing.UpdatedAt = r.now().UTC()
	r.users[u.ID] = existing

	out := existing
	return &out, nil
}

// Delete はユーザーを削除します。APIからは呼ばれず、失効したトークンのテストで使います。
func (r *MemoryUserRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

type memoryTask struct {
	task models.Task
	seq  uint64
}

// MemoryTaskRepo はメモリ上のTaskRepositoryです。
type MemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]memoryTask
	seq   uint64
	now   func() time.Time
}

// NewMemoryTaskRepo は新しいMemoryTaskRepoを作成します。
func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[string]memoryTask), now: time.Now}
}

func (r *MemoryTaskRepo) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	created := *t
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.seq++
	r.tasks[created.ID] = memoryTask{task: created, seq: r.seq}

	out := created
	return &out, nil
}

func (r *MemoryTaskRepo) FindByID(_ context.Context, id string) (*models.Task, error) {
	key, err := parseMemoryID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	mt, ok := r.tasks[key]
	if !ok {
		return nil, ErrTaskNotFound
	}
	out := mt.task
	return &out, nil
}

func (r *MemoryTaskRepo) FindByOwner(_ context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	r.mu.RLock()
	matched := make([]memoryTask, 0)
	for _, mt := range r.tasks {
		if mt.task.UserID != userID {
			continue
		}
		if filter.Urgency != nil && mt.task.Urgency != *filter.Urgency {
			continue
		}
		if filter.Completed != nil && mt.task.Completed != *filter.Completed {
			continue
		}
		matched = append(matched, mt)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]*models.Task, 0, len(matched))
	for _, mt := range matched {
		t := mt.task
		out = append(out, &t)
	}
	return out, nil
}

func (r *MemoryTaskRepo) Update(_ context.Context, t *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[t.ID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	mt.task.Title = t.Title
	mt.task.Description = t.Description
	mt.task.Urgency = t.Urgency
	mt.task.Completed = t.Completed
	mt.task.UpdatedAt = r.now().UTC()
	r.tasks[t.ID] = mt

	out := mt.task
	return &out, nil
}

func (r *MemoryTaskRepo) Delete(_ context.Context, id string) error {
	key, err := parseMemoryID(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[key]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, key)
	return nil
}

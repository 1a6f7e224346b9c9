package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// Dialect はSQLバックエンドの種類です。
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// DriverName はsqlxに渡すドライバ名を返します。
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "mysql"
}

var schemas = map[Dialect][]string{
	DialectMySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			urgency VARCHAR(10) NOT NULL DEFAULT 'medium',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			INDEX idx_tasks_user_created (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
	},
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			urgency VARCHAR(10) NOT NULL DEFAULT 'medium',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks (user_id, created_at DESC)`,
	},
}

// MigrateSQL はテーブルが存在しない場合に作成します。
func MigrateSQL(ctx context.Context, db *sqlx.DB, dialect Dialect) error {
	stmts, ok := schemas[dialect]
	if !ok {
		return fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func parseSQLID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

func formatSQLID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// sqlTimestamp はDATETIME(3)に合わせてミリ秒に丸めた現在時刻を返します。
func sqlTimestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// insertReturningID はINSERTを実行し、採番されたIDを返します。
// PostgresはLastInsertIdに対応していないためRETURNINGを使います。
func insertReturningID(ctx context.Context, db *sqlx.DB, dialect Dialect, query string, args ...any) (int64, error) {
	query = db.Rebind(query)
	if dialect == DialectPostgres {
		var id int64
		if err := db.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

type userRow struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:           formatSQLID(r.ID),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// SQLUserRepository はMySQL/Postgresのusersテーブルを扱います。
type SQLUserRepository struct {
	DB      *sqlx.DB
	dialect Dialect
	log     *slog.Logger
}

// NewSQLUserRepository は新しいSQLUserRepositoryを作成します。
func NewSQLUserRepository(db *sqlx.DB, dialect Dialect, log *slog.Logger) *SQLUserRepository {
	return &SQLUserRepository{DB: db, dialect: dialect, log: log}
}

func (r *SQLUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := sqlTimestamp()
	email := strings.ToLower(strings.TrimSpace(u.Email))

	const query = "INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	id, err := insertReturningID(ctx, r.DB, r.dialect, query, u.Name, email, u.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		r.log.Error("failed to insert user", "error", err)
		return nil, fmt.Errorf("could not insert user: %w", err)
	}

	created := *u
	created.ID = formatSQLID(id)
	created.Email = email
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (r *SQLUserRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := r.DB.Rebind("SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE " + where)
	var row userRow
	if err := r.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		r.log.Error("failed to query user", "error", err)
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return row.toModel(), nil
}

func (r *SQLUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	n, err := parseSQLID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "id = ?", n)
}

func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *SQLUserRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	n, err := parseSQLID(u.ID)
	if err != nil {
		return nil, err
	}
	query := r.DB.Rebind("UPDATE users SET name = ?, password_hash = ?, updated_at = ? WHERE id = ?")
	if _, err := r.DB.ExecContext(ctx, query, u.Name, u.PasswordHash, sqlTimestamp(), n); err != nil {
		r.log.Error("failed to update user", "error", err)
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	// MySQLは値が変わらない行をRowsAffectedに数えないため、存在確認は再取得で行います。
	return r.FindByID(ctx, u.ID)
}

type taskRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Urgency     string    `db:"urgency"`
	Completed   bool      `db:"completed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r taskRow) toModel() *models.Task {
	return &models.Task{
		ID:          formatSQLID(r.ID),
		UserID:      formatSQLID(r.UserID),
		Title:       r.Title,
		Description: r.Description,
		Urgency:     models.Urgency(r.Urgency),
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const taskColumns = "id, user_id, title, description, urgency, completed, created_at, updated_at"

// SQLTaskRepository はMySQL/Postgresのtasksテーブルを扱います。
type SQLTaskRepository struct {
	DB      *sqlx.DB
	dialect Dialect
	log     *slog.Logger
}

// NewSQLTaskRepository は新しいSQLTaskRepositoryを作成します。
func NewSQLTaskRepository(db *sqlx.DB, dialect Dialect, log *slog.Logger) *SQLTaskRepository {
	return &SQLTaskRepository{DB: db, dialect: dialect, log: log}
}

func (r *SQLTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	owner, err := parseSQLID(t.UserID)
	if err != nil {
		return nil, err
	}
	now := sqlTimestamp()

	const query = "INSERT INTO tasks (user_id, title, description, urgency, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	id, err := insertReturningID(ctx, r.DB, r.dialect, query, owner, t.Title, t.Description, string(t.Urgency), t.Completed, now, now)
	if err != nil {
		r.log.Error("failed to insert task", "error", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}

	created := *t
	created.ID = formatSQLID(id)
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (r *SQLTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	n, err := parseSQLID(id)
	if err != nil {
		return nil, err
	}
	query := r.DB.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")
	var row taskRow
	if err := r.DB.GetContext(ctx, &row, query, n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		r.log.Error("failed to query task by ID", "error", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return row.toModel(), nil
}

func (r *SQLTaskRepository) FindByOwner(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	owner, err := parseSQLID(userID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + taskColumns + " FROM tasks WHERE user_id = ?")
	args := []any{owner}
	if filter.Urgency != nil {
		sb.WriteString(" AND urgency = ?")
		args = append(args, string(*filter.Urgency))
	}
	if filter.Completed != nil {
		sb.WriteString(" AND completed = ?")
		args = append(args, *filter.Completed)
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	var rows []taskRow
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(sb.String()), args...); err != nil {
		r.log.Error("failed to query tasks", "error", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

func (r *SQLTaskRepository) Update(ctx context.Context, t *models.Task) (*models.Task, error) {
	n, err := parseSQLID(t.ID)
	if err != nil {
		return nil, err
	}
	query := r.DB.Rebind("UPDATE tasks SET title = ?, description = ?, urgency = ?, completed = ?, updated_at = ? WHERE id = ?")
	if _, err := r.DB.ExecContext(ctx, query, t.Title, t.Description, string(t.Urgency), t.Completed, sqlTimestamp(), n); err != nil {
		r.log.Error("failed to update task", "error", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	// 更新されたタスクを取得して返す
	return r.FindByID(ctx, t.ID)
}

func (r *SQLTaskRepository) Delete(ctx context.Context, id string) error {
	n, err := parseSQLID(id)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM tasks WHERE id = ?"), n)
	if err != nil {
		r.log.Error("failed to delete task", "error", err)
		return fmt.Errorf("could not delete task: %w", err)
	}

	// 削除された行数を確認
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

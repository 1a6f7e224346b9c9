// Package database はDB_DRIVERに応じてストアへの接続を初期化します。
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Vanaiyalini/TaskTrail/internal/config"
	"github.com/Vanaiyalini/TaskTrail/internal/repositories"
)

// Store はリポジトリと接続のライフサイクルをまとめます。
type Store struct {
	Users repositories.UserRepository
	Tasks repositories.TaskRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping はデータベース接続の健全性を確認します。
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close は接続を閉じます。
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// NewMemoryStore はメモリ上のストアを作成します。
func NewMemoryStore() *Store {
	return &Store{
		Users: repositories.NewMemoryUserRepo(),
		Tasks: repositories.NewMemoryTaskRepo(),
		ping:  func(context.Context) error { return nil },
		close: func(context.Context) error { return nil },
	}
}

// Connect は設定に従ってデータベースに接続し、必要なインデックス・テーブルを作成します。
func Connect(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return connectMongo(ctx, cfg, log)
	case config.DriverMySQL:
		dsn, err := mysqlDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		return connectSQL(ctx, repositories.DialectMySQL, dsn, log)
	case config.DriverPostgres:
		return connectSQL(ctx, repositories.DialectPostgres, cfg.URL, log)
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
}

func connectMongo(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to open mongo connection: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Name)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info("connected to MongoDB", "database", cfg.Name)

	return &Store{
		Users: repositories.NewMongoUserRepository(db, log),
		Tasks: repositories.NewMongoTaskRepository(db, log),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}, nil
}

// mysqlDSN はtime.Timeへのスキャンに必要なparseTimeを強制します。
func mysqlDSN(raw string) (string, error) {
	dsnCfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DATABASE_URL: %w", err)
	}
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.UTC
	return dsnCfg.FormatDSN(), nil
}

func connectSQL(ctx context.Context, dialect repositories.Dialect, dsn string, log *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := repositories.MigrateSQL(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dialect, err)
	}
	log.Info("connected to SQL database", "dialect", dialect)

	return &Store{
		Users: repositories.NewSQLUserRepository(db, dialect, log),
		Tasks: repositories.NewSQLTaskRepository(db, dialect, log),
		ping:  db.PingContext,
		close: func(context.Context) error { return db.Close() },
	}, nil
}

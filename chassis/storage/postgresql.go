package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrDuplicateDispatch is returned when a dispatch id is recorded twice.
var ErrDuplicateDispatch = errors.New("duplicated dispatch")

const uniqueViolation = "23505"

// Schema of the journal table.
const Schema = `
create table if not exists t_dispatch (
	id            uuid primary key,
	task_type     text not null,
	task_key      text not null,
	task_name     text not null,
	username      text not null,
	run_id        text not null default '',
	command       text not null,
	log_path      text not null,
	dispatched_dt timestamp not null default localtimestamp
);
create index if not exists t_dispatch_task_idx on t_dispatch(task_type, task_key);
`

// PGRepository - ...
type PGRepository struct {
	pool *pgxpool.Pool
}

// InitPGRepository - ...
func InitPGRepository(ctx context.Context, cfg Config) (*PGRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	return &PGRepository{
		pool: pool,
	}, nil
}

// Migrate creates the journal table when missing.
func (repo *PGRepository) Migrate(ctx context.Context) error {
	_, err := repo.pool.Exec(ctx, Schema)
	return err
}

// Record - ...
func (repo *PGRepository) Record(ctx context.Context, dispatch *Dispatch) error {
	query := `
	insert into t_dispatch(id, task_type, task_key, task_name, username, run_id, command, log_path, dispatched_dt)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	tag, err := repo.pool.Exec(ctx, query,
		dispatch.ID,
		dispatch.TaskType,
		dispatch.Key,
		dispatch.TaskName,
		dispatch.Username,
		dispatch.RunID,
		dispatch.Command,
		dispatch.LogPath,
		dispatch.DispatchedDt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateDispatch
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("zero rows affected")
	}
	return nil
}

// CountForTask returns how many times a task key was dispatched.
func (repo *PGRepository) CountForTask(ctx context.Context, taskType, key string) (int, error) {
	var count int
	query := `select count(*) from t_dispatch where task_type = $1 and task_key = $2`
	err := repo.pool.QueryRow(ctx, query, taskType, key).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close ...
func (repo *PGRepository) Close() {
	repo.pool.Close()
}

// CleanOldDispatches ...
func (repo *PGRepository) CleanOldDispatches(ctx context.Context, expiration int) (int, error) {
	query := `
	delete from t_dispatch
	where dispatched_dt < localtimestamp - concat($1::int, ' seconds')::INTERVAL;
	`
	cmdTag, err := repo.pool.Exec(ctx, query, expiration)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

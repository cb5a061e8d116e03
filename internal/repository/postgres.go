// Package repository содержит реализации хранилища пожертвований: PostgreSQL и MongoDB.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const donationColumns = `id::text, donor_id, donor_kind, item_name, category, quantity, description,
	pickup_instructions, expires_at, estimated_value, meals_saved, co2_avoided, status,
	volunteer_id, destination_id, pickup_at, delivered_at, created_at`

const (
	retryBase     = 100 * time.Millisecond
	retryAttempts = 3
)

// PostgresRepository предоставляет доступ к пожертвованиям в PostgreSQL.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	retryBase time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, retryBase: retryBase}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных отказах БД.
// Повтор условного обновления безопасен: условие проверяется заново при каждой попытке.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(r.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func parseID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}

func scanDonation(row pgx.Row) (*model.Donation, error) {
	var (
		d         model.Donation
		donorKind string
		category  string
		status    string
	)

	err := row.Scan(
		&d.ID, &d.DonorID, &donorKind, &d.ItemName, &category, &d.Quantity, &d.Description,
		&d.PickupInstructions, &d.ExpiresAt, &d.EstimatedValue, &d.Impact.MealsSaved, &d.Impact.CO2Avoided, &status,
		&d.VolunteerID, &d.DestinationID, &d.PickupAt, &d.DeliveredAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.DonorKind = model.DonorKind(donorKind)
	d.Category = model.Category(category)
	d.Status = model.Status(status)

	return &d, nil
}

// CreateDonation сохраняет новое пожертвование в начальном состоянии.
func (r *PostgresRepository) CreateDonation(ctx context.Context, nd model.NewDonation) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO donations (donor_id, donor_kind, item_name, category, quantity, description,
			pickup_instructions, expires_at, estimated_value, meals_saved, co2_avoided, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+donationColumns,
		nd.DonorID, string(nd.DonorKind), nd.ItemName, string(nd.Category), nd.Quantity, nd.Description,
		nd.PickupInstructions, nd.ExpiresAt, nd.EstimatedValue, nd.Impact.MealsSaved, nd.Impact.CO2Avoided,
		string(lifecycle.Initial),
	)

	d, err := scanDonation(row)
	if err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

// GetDonation возвращает пожертвование по идентификатору.
func (r *PostgresRepository) GetDonation(ctx context.Context, id string) (*model.Donation, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	d, err := scanDonation(r.pool.QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`,
		pid,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

func statusStrings(statuses []model.Status) []string {
	res := make([]string, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, string(s))
	}
	return res
}

func buildWhere(f model.DonationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.DonorID != "" {
		add("donor_id = $%d", f.DonorID)
	}
	if f.VolunteerID != "" {
		add("volunteer_id = $%d", f.VolunteerID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", statusStrings(f.Statuses))
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at <= $%d", *f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(s model.SortOrder) string {
	switch s {
	case model.OldestFirst:
		return " ORDER BY created_at ASC, id"
	case model.LatestDeliveryFirst:
		return " ORDER BY delivered_at DESC NULLS LAST, created_at DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

// ListDonations возвращает пожертвования, удовлетворяющие фильтру.
func (r *PostgresRepository) ListDonations(ctx context.Context, f model.DonationFilter) ([]model.Donation, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + donationColumns + ` FROM donations` + where + orderBy(f.Sort)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select donations: %w", err)
	}
	defer rows.Close()

	var res []model.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountDonations возвращает количество пожертвований, удовлетворяющих фильтру.
func (r *PostgresRepository) CountDonations(ctx context.Context, f model.DonationFilter) (int64, error) {
	where, args := buildWhere(f)

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM donations`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

// ScheduledVolunteers возвращает различных волонтёров, назначенных на запланированные пожертвования донора.
func (r *PostgresRepository) ScheduledVolunteers(ctx context.Context, donorID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT volunteer_id
		 FROM donations
		 WHERE donor_id = $1 AND status = $2 AND volunteer_id IS NOT NULL`,
		donorID, string(lifecycle.Pickup.From),
	)
	if err != nil {
		return nil, fmt.Errorf("select scheduled volunteers: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan volunteer: %w", err)
		}
		res = append(res, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sort.Strings(res)
	return res, nil
}

// updateOne выполняет условное обновление одной записи и возвращает её новое состояние.
func (r *PostgresRepository) updateOne(ctx context.Context, op, query string, args ...any) (*model.Donation, error) {
	var d *model.Donation
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		d, err = scanDonation(r.pool.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

// AssignVolunteer переводит доступное пожертвование в состояние scheduled и привязывает волонтёра.
func (r *PostgresRepository) AssignVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "assign volunteer",
		`UPDATE donations SET status = $3, volunteer_id = $2
		 WHERE id = $1 AND status = $4
		 RETURNING `+donationColumns,
		pid, volunteerID, string(lifecycle.Assign.To), string(lifecycle.Assign.From),
	)
}

// ReleaseVolunteer возвращает запланированное пожертвование в доступные, если оно привязано к volunteerID.
func (r *PostgresRepository) ReleaseVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "release volunteer",
		`UPDATE donations SET status = $3, volunteer_id = NULL
		 WHERE id = $1 AND status = $4 AND volunteer_id = $2
		 RETURNING `+donationColumns,
		pid, volunteerID, string(lifecycle.Cancel.To), string(lifecycle.Cancel.From),
	)
}

// MarkPickedUp одним условным обновлением переводит все запланированные пожертвования донора,
// привязанные к волонтёру, в состояние picked_up. Возвращает число изменённых записей.
func (r *PostgresRepository) MarkPickedUp(ctx context.Context, donorID, volunteerID string, at time.Time) (int64, error) {
	var n int64
	err := r.withRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE donations SET status = $3, pickup_at = $4
			 WHERE donor_id = $1 AND volunteer_id = $2 AND status = $5`,
			donorID, volunteerID, string(lifecycle.Pickup.To), at, string(lifecycle.Pickup.From),
		)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark picked up: %w", err)
	}
	return n, nil
}

// MarkCompleted фиксирует доставку пожертвования, забранного волонтёром volunteerID.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id, volunteerID, destinationID string, at time.Time) (*model.Donation, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "mark completed",
		`UPDATE donations SET status = $4, destination_id = $3, delivered_at = $5
		 WHERE id = $1 AND volunteer_id = $2 AND status = $6
		 RETURNING `+donationColumns,
		pid, volunteerID, destinationID, string(lifecycle.Complete.To), at, string(lifecycle.Complete.From),
	)
}

// Withdraw снимает доступное пожертвование с публикации.
func (r *PostgresRepository) Withdraw(ctx context.Context, id string) (*model.Donation, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "withdraw donation",
		`UPDATE donations SET status = $2
		 WHERE id = $1 AND status = $3
		 RETURNING `+donationColumns,
		pid, string(lifecycle.Withdraw.To), string(lifecycle.Withdraw.From),
	)
}

// DeleteDonation удаляет пожертвование независимо от его состояния.
func (r *PostgresRepository) DeleteDonation(ctx context.Context, id string) error {
	pid, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM donations WHERE id = $1`, pid)
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDonationNotFound
	}
	return nil
}

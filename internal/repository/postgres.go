package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

// Postgres error codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// DefaultTxAttempts is how often WithTx runs a body that keeps hitting
// serialization failures before it reports a conflict.
const DefaultTxAttempts = 3

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store with pgx directly (no ORM).
type PostgresStore struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	attempts int
}

// NewPostgresStore constructs a PostgresStore over an open pool.
func NewPostgresStore(db *pgxpool.Pool, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PostgresStore{db: db, log: log, attempts: DefaultTxAttempts}
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.db.Close() }

// WithTx runs fn inside a SERIALIZABLE transaction.
//
// Two bookers racing for the same slots both read the daily record, both
// find it free and both try to write it back. Under SERIALIZABLE the second
// commit fails with 40001 (or the second INSERT of a fresh record fails with
// 23505), so the body is re-run against the committed state, where the
// re-validation now sees the first booker's slots and reports a conflict.
// No row is locked up front.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		s.log.Warn("serializable transaction aborted, retrying",
			"attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
		return true
	}
	return false
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ─── Availability ────────────────────────────────────────────────────────────

func (s *PostgresStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return getResource(ctx, s.db, id)
}

func (s *PostgresStore) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	return getSchedule(ctx, s.db, id)
}

func (s *PostgresStore) GetDailyAvailability(ctx context.Context, resourceID, date string) (*model.DailyAvailability, error) {
	return getDaily(ctx, s.db, resourceID, date)
}

func (s *PostgresStore) GetQuantityAvailability(ctx context.Context, resourceID, date string) (*model.QuantityAvailability, error) {
	return getQuantity(ctx, s.db, resourceID, date)
}

const resourceColumns = `id, organization_id, name, type, timezone, quantity, is_fungible,
	is_standalone, is_active, COALESCE(schedule_id, ''), created_at, updated_at`

func scanResource(row pgx.Row) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Type, &r.Timezone, &r.Quantity,
		&r.IsFungible, &r.IsStandalone, &r.IsActive, &r.ScheduleID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func getResource(ctx context.Context, q querier, id string) (*model.Resource, error) {
	r, err := scanResource(q.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

const scheduleColumns = `id, organization_id, name, timezone, weekly, overrides, created_at, updated_at`

func scanSchedule(row pgx.Row) (*model.Schedule, error) {
	var (
		sc                model.Schedule
		weekly, overrides []byte
	)
	err := row.Scan(&sc.ID, &sc.OrganizationID, &sc.Name, &sc.Timezone,
		&weekly, &overrides, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(weekly, &sc.Weekly); err != nil {
		return nil, fmt.Errorf("decode weekly hours: %w", err)
	}
	if err := json.Unmarshal(overrides, &sc.Overrides); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	return &sc, nil
}

func getSchedule(ctx context.Context, q querier, id string) (*model.Schedule, error) {
	sc, err := scanSchedule(q.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sc, nil
}

func getDaily(ctx context.Context, q querier, resourceID, date string) (*model.DailyAvailability, error) {
	var busy []int32
	err := q.QueryRow(ctx,
		`SELECT busy_slots FROM daily_availability WHERE resource_id = $1 AND date = $2`,
		resourceID, date,
	).Scan(&busy)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get daily availability: %w", err)
	}
	return &model.DailyAvailability{ResourceID: resourceID, Date: date, BusySlots: fromInt32(busy)}, nil
}

func getQuantity(ctx context.Context, q querier, resourceID, date string) (*model.QuantityAvailability, error) {
	rec := &model.QuantityAvailability{ResourceID: resourceID, Date: date}
	var counts []int32
	err := q.QueryRow(ctx,
		`SELECT slot_quantities FROM quantity_availability WHERE resource_id = $1 AND date = $2`,
		resourceID, date,
	).Scan(&counts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, nil
		}
		return nil, fmt.Errorf("get quantity availability: %w", err)
	}
	if len(counts) != slot.SlotsPerDay {
		return nil, fmt.Errorf("quantity availability %s/%s has %d slots", resourceID, date, len(counts))
	}
	for i, c := range counts {
		rec.Slots[i] = int(c)
	}
	return rec, nil
}

// ─── Bookings ────────────────────────────────────────────────────────────────

func (s *PostgresStore) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
	return getEventType(ctx, s.db, id)
}

func (s *PostgresStore) IsLinked(ctx context.Context, resourceID, eventTypeID string) (bool, error) {
	return isLinked(ctx, s.db, resourceID, eventTypeID)
}

func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, s.db, `b.id = $1`, id)
}

func (s *PostgresStore) GetBookingByUID(ctx context.Context, uid string) (*model.Booking, error) {
	return getBooking(ctx, s.db, `b.uid = $1`, uid)
}

func (s *PostgresStore) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.ResourceID != "" {
		add(`(b.resource_id = ? OR EXISTS (
			SELECT 1 FROM booking_items i WHERE i.booking_id = b.id AND i.resource_id = ?))`, f.ResourceID)
	}
	if f.OrganizationID != "" {
		add(`b.organization_id = ?`, f.OrganizationID)
	}
	if f.Status != "" {
		add(`b.status = ?`, string(f.Status))
	}
	if f.From != 0 {
		add(`b.end_ms > ?`, f.From)
	}
	if f.To != 0 {
		add(`b.start_ms < ?`, f.To)
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings b`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, ` AND `)
	}
	sql += ` ORDER BY b.start_ms ASC, b.id ASC`
	if f.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		bookings []model.Booking
		ids      []string
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return bookings, nil
	}

	items, err := listItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Items = items[bookings[i].ID]
	}
	return bookings, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, bookingID string) ([]model.BookingHistory, error) {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check booking: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, booking_id, from_status, to_status, changed_by, reason, changed_at
		 FROM booking_history
		 WHERE booking_id = $1
		 ORDER BY changed_at ASC, id ASC`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []model.BookingHistory
	for rows.Next() {
		var h model.BookingHistory
		var from, to string
		if err := rows.Scan(&h.ID, &h.BookingID, &from, &to, &h.ChangedBy, &h.Reason, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.FromStatus, h.ToStatus = model.BookingStatus(from), model.BookingStatus(to)
		out = append(out, h)
	}
	return out, rows.Err()
}

const eventTypeColumns = `id, organization_id, slug, title, description, length_in_minutes,
	length_options, slot_interval, timezone, lock_time_zone_toggle, locations, buffer_before,
	buffer_after, min_notice_minutes, max_future_minutes, requires_confirmation, is_active,
	created_at, updated_at`

func scanEventType(row pgx.Row) (*model.EventType, error) {
	var (
		e         model.EventType
		options   []int32
		locations []byte
	)
	err := row.Scan(&e.ID, &e.OrganizationID, &e.Slug, &e.Title, &e.Description,
		&e.LengthInMinutes, &options, &e.SlotInterval, &e.Timezone, &e.LockTimeZoneToggle,
		&locations, &e.BufferBefore, &e.BufferAfter, &e.MinNoticeMinutes, &e.MaxFutureMinutes,
		&e.RequiresConfirmation, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		e.LengthInMinutesOptions = fromInt32(options)
	}
	if err := json.Unmarshal(locations, &e.Locations); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return &e, nil
}

func getEventType(ctx context.Context, q querier, id string) (*model.EventType, error) {
	e, err := scanEventType(q.QueryRow(ctx,
		`SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event type: %w", err)
	}
	return e, nil
}

func isLinked(ctx context.Context, q querier, resourceID, eventTypeID string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM resource_event_types WHERE resource_id = $1 AND event_type_id = $2)`,
		resourceID, eventTypeID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return ok, nil
}

const bookingColumns = `b.id, b.uid, b.resource_id, COALESCE(b.event_type_id, ''), b.organization_id,
	b.start_ms, b.end_ms, b.timezone, b.status, b.booker_name, b.booker_email, b.booker_phone,
	b.booker_notes, b.title, b.description, b.location, b.actor_id, b.management_token_hash,
	b.management_token_expires_at, b.cancellation_reason, b.cancelled_at,
	COALESCE(b.rescheduled_from, ''), b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b       model.Booking
		status  string
		expires *time.Time
	)
	err := row.Scan(&b.ID, &b.UID, &b.ResourceID, &b.EventTypeID, &b.OrganizationID,
		&b.Start, &b.End, &b.Timezone, &status, &b.BookerName, &b.BookerEmail, &b.BookerPhone,
		&b.BookerNotes, &b.Title, &b.Description, &b.Location, &b.ActorID, &b.ManagementTokenHash,
		&expires, &b.CancellationReason, &b.CancelledAt,
		&b.RescheduledFrom, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	if expires != nil {
		b.ManagementTokenExpiresAt = *expires
	}
	return &b, nil
}

func getBooking(ctx context.Context, q querier, cond string, arg string) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE `+cond, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	items, err := listItems(ctx, q, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.Items = items[b.ID]
	return b, nil
}

func listItems(ctx context.Context, q querier, bookingIDs []string) (map[string][]model.BookingItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, booking_id, resource_id, quantity
		 FROM booking_items
		 WHERE booking_id = ANY($1)
		 ORDER BY position ASC`,
		bookingIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list booking items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.BookingItem, len(bookingIDs))
	for rows.Next() {
		var it model.BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.ResourceID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan booking item: %w", err)
		}
		out[it.BookingID] = append(out[it.BookingID], it)
	}
	return out, rows.Err()
}

// ─── Registry ────────────────────────────────────────────────────────────────

func (s *PostgresStore) CreateResource(ctx context.Context, r *model.Resource) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO resources (id, organization_id, name, type, timezone, quantity, is_fungible,
		   is_standalone, is_active, schedule_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)`,
		r.ID, r.OrganizationID, r.Name, r.Type, r.Timezone, r.Quantity, r.IsFungible,
		r.IsStandalone, r.IsActive, r.ScheduleID, r.CreatedAt, r.UpdatedAt,
	)
	return writeErr("insert resource", err)
}

func (s *PostgresStore) UpdateResource(ctx context.Context, r *model.Resource) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE resources SET organization_id = $2, name = $3, type = $4, timezone = $5,
		   quantity = $6, is_fungible = $7, is_standalone = $8, is_active = $9,
		   schedule_id = NULLIF($10, ''), updated_at = $11
		 WHERE id = $1`,
		r.ID, r.OrganizationID, r.Name, r.Type, r.Timezone, r.Quantity, r.IsFungible,
		r.IsStandalone, r.IsActive, r.ScheduleID, r.UpdatedAt,
	)
	if err != nil {
		return writeErr("update resource", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteResource(ctx context.Context, id string) error {
	return s.delete(ctx, "resource", `DELETE FROM resources WHERE id = $1`, id)
}

func (s *PostgresStore) ListResources(ctx context.Context, organizationID string) ([]model.Resource, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE $1 = '' OR organization_id = $1
		 ORDER BY id ASC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateEventType(ctx context.Context, e *model.EventType) error {
	locations, err := json.Marshal(nonNil(e.Locations))
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO event_types (id, organization_id, slug, title, description, length_in_minutes,
		   length_options, slot_interval, timezone, lock_time_zone_toggle, locations, buffer_before,
		   buffer_after, min_notice_minutes, max_future_minutes, requires_confirmation, is_active,
		   created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		e.ID, e.OrganizationID, e.Slug, e.Title, e.Description, e.LengthInMinutes,
		toInt32(e.LengthInMinutesOptions), e.SlotInterval, e.Timezone, e.LockTimeZoneToggle,
		locations, e.BufferBefore, e.BufferAfter, e.MinNoticeMinutes, e.MaxFutureMinutes,
		e.RequiresConfirmation, e.IsActive, e.CreatedAt, e.UpdatedAt,
	)
	return writeErr("insert event type", err)
}

func (s *PostgresStore) UpdateEventType(ctx context.Context, e *model.EventType) error {
	locations, err := json.Marshal(nonNil(e.Locations))
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE event_types SET organization_id = $2, slug = $3, title = $4, description = $5,
		   length_in_minutes = $6, length_options = $7, slot_interval = $8, timezone = $9,
		   lock_time_zone_toggle = $10, locations = $11, buffer_before = $12, buffer_after = $13,
		   min_notice_minutes = $14, max_future_minutes = $15, requires_confirmation = $16,
		   is_active = $17, updated_at = $18
		 WHERE id = $1`,
		e.ID, e.OrganizationID, e.Slug, e.Title, e.Description, e.LengthInMinutes,
		toInt32(e.LengthInMinutesOptions), e.SlotInterval, e.Timezone, e.LockTimeZoneToggle,
		locations, e.BufferBefore, e.BufferAfter, e.MinNoticeMinutes, e.MaxFutureMinutes,
		e.RequiresConfirmation, e.IsActive, e.UpdatedAt,
	)
	if err != nil {
		return writeErr("update event type", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEventType(ctx context.Context, id string) error {
	return s.delete(ctx, "event type", `DELETE FROM event_types WHERE id = $1`, id)
}

func (s *PostgresStore) ListEventTypes(ctx context.Context, organizationID string) ([]model.EventType, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+eventTypeColumns+` FROM event_types
		 WHERE $1 = '' OR organization_id = $1
		 ORDER BY slug ASC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var out []model.EventType
	for rows.Next() {
		e, err := scanEventType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	weekly, overrides, err := encodeHours(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO schedules (id, organization_id, name, timezone, weekly, overrides, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sc.ID, sc.OrganizationID, sc.Name, sc.Timezone, weekly, overrides, sc.CreatedAt, sc.UpdatedAt,
	)
	return writeErr("insert schedule", err)
}

func (s *PostgresStore) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	weekly, overrides, err := encodeHours(sc)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE schedules SET organization_id = $2, name = $3, timezone = $4, weekly = $5,
		   overrides = $6, updated_at = $7
		 WHERE id = $1`,
		sc.ID, sc.OrganizationID, sc.Name, sc.Timezone, weekly, overrides, sc.UpdatedAt,
	)
	if err != nil {
		return writeErr("update schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSchedule(ctx context.Context, id string) error {
	return s.delete(ctx, "schedule", `DELETE FROM schedules WHERE id = $1`, id)
}

func (s *PostgresStore) ListSchedules(ctx context.Context, organizationID string) ([]model.Schedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE $1 = '' OR organization_id = $1
		 ORDER BY id ASC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LinkEventType(ctx context.Context, resourceID, eventTypeID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO resource_event_types (resource_id, event_type_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		resourceID, eventTypeID,
	)
	return writeErr("link event type", err)
}

func (s *PostgresStore) UnlinkEventType(ctx context.Context, resourceID, eventTypeID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM resource_event_types WHERE resource_id = $1 AND event_type_id = $2`,
		resourceID, eventTypeID,
	)
	if err != nil {
		return fmt.Errorf("unlink event type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LinkedResources(ctx context.Context, eventTypeID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT resource_id FROM resource_event_types
		 WHERE event_type_id = $1
		 ORDER BY resource_id ASC`,
		eventTypeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list linked resources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan linked resource: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) delete(ctx context.Context, what, sql, id string) error {
	tag, err := s.db.Exec(ctx, sql, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("%s %s: %w", what, id, ErrInUse)
		}
		return fmt.Errorf("delete %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// writeErr maps constraint violations of inserts and updates.
func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: referenced record: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func encodeHours(sc *model.Schedule) (weekly, overrides []byte, err error) {
	if weekly, err = json.Marshal(nonNil(sc.Weekly)); err != nil {
		return nil, nil, fmt.Errorf("encode weekly hours: %w", err)
	}
	if overrides, err = json.Marshal(nonNil(sc.Overrides)); err != nil {
		return nil, nil, fmt.Errorf("encode overrides: %w", err)
	}
	return weekly, overrides, nil
}

// ─── Transaction ─────────────────────────────────────────────────────────────

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return getResource(ctx, t.tx, id)
}

func (t *pgTx) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	return getSchedule(ctx, t.tx, id)
}

func (t *pgTx) GetDailyAvailability(ctx context.Context, resourceID, date string) (*model.DailyAvailability, error) {
	return getDaily(ctx, t.tx, resourceID, date)
}

func (t *pgTx) GetQuantityAvailability(ctx context.Context, resourceID, date string) (*model.QuantityAvailability, error) {
	return getQuantity(ctx, t.tx, resourceID, date)
}

func (t *pgTx) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
	return getEventType(ctx, t.tx, id)
}

func (t *pgTx) IsLinked(ctx context.Context, resourceID, eventTypeID string) (bool, error) {
	return isLinked(ctx, t.tx, resourceID, eventTypeID)
}

func (t *pgTx) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, t.tx, `b.id = $1`, id)
}

func (t *pgTx) PutDailyAvailability(ctx context.Context, rec *model.DailyAvailability) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO daily_availability (resource_id, date, busy_slots)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (resource_id, date) DO UPDATE SET busy_slots = EXCLUDED.busy_slots`,
		rec.ResourceID, rec.Date, toInt32(rec.BusySlots),
	)
	if err != nil {
		return fmt.Errorf("put daily availability: %w", err)
	}
	return nil
}

func (t *pgTx) PutQuantityAvailability(ctx context.Context, rec *model.QuantityAvailability) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO quantity_availability (resource_id, date, slot_quantities)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (resource_id, date) DO UPDATE SET slot_quantities = EXCLUDED.slot_quantities`,
		rec.ResourceID, rec.Date, toInt32(rec.Slots[:]),
	)
	if err != nil {
		return fmt.Errorf("put quantity availability: %w", err)
	}
	return nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	var expires *time.Time
	if !b.ManagementTokenExpiresAt.IsZero() {
		expires = &b.ManagementTokenExpiresAt
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO bookings (id, uid, resource_id, event_type_id, organization_id, start_ms, end_ms,
		   timezone, status, booker_name, booker_email, booker_phone, booker_notes, title,
		   description, location, actor_id, management_token_hash, management_token_expires_at,
		   cancellation_reason, cancelled_at, rescheduled_from, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		   $15, $16, $17, $18, $19, $20, $21, NULLIF($22, ''), $23, $24)`,
		b.ID, b.UID, b.ResourceID, b.EventTypeID, b.OrganizationID, b.Start, b.End,
		b.Timezone, string(b.Status), b.BookerName, b.BookerEmail, b.BookerPhone, b.BookerNotes, b.Title,
		b.Description, b.Location, b.ActorID, b.ManagementTokenHash, expires,
		b.CancellationReason, b.CancelledAt, b.RescheduledFrom, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	for i, it := range b.Items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO booking_items (id, booking_id, resource_id, quantity, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			it.ID, b.ID, it.ResourceID, it.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("insert booking item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE bookings SET status = $2, cancellation_reason = $3, cancelled_at = $4, updated_at = $5
		 WHERE id = $1`,
		b.ID, string(b.Status), b.CancellationReason, b.CancelledAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, h *model.BookingHistory) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO booking_history (id, booking_id, from_status, to_status, changed_by, reason, changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.BookingID, string(h.FromStatus), string(h.ToStatus), h.ChangedBy, h.Reason, h.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func toInt32(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromInt32(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

var _ Store = (*PostgresStore)(nil)

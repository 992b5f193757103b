package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	model "github.com/jornada/fichaje/internal/domain/model"
)

const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 25
	mysqlConnMaxLifetime = 5 * time.Minute
	mysqlPingTimeout     = 5 * time.Second

	// MySQL ER_DUP_ENTRY, raised when an INSERT hits the primary key.
	mysqlErrDupEntry = 1062
)

// isDuplicateKey reports whether err is a MySQL duplicate-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDupEntry
}

const fichajesSchema = `
CREATE TABLE IF NOT EXISTS fichajes (
	id                  VARCHAR(64)  NOT NULL,
	fk_user             VARCHAR(64)  NOT NULL,
	usuario_nombre      VARCHAR(255) NOT NULL DEFAULT '',
	tipo                VARCHAR(16)  NOT NULL,
	fecha_creacion      DATETIME(3)  NOT NULL,
	fecha_original      DATETIME(3)  NULL,
	lat                 VARCHAR(32)  NOT NULL DEFAULT '',
	lng                 VARCHAR(32)  NOT NULL DEFAULT '',
	location_warning    TINYINT(1)   NOT NULL DEFAULT 0,
	early_entry_warning TINYINT(1)   NOT NULL DEFAULT 0,
	observaciones       TEXT         NULL,
	justification       TEXT         NULL,
	duracion_efectiva   INT          NULL,
	duracion_pausas     INT          NULL,
	PRIMARY KEY (id),
	KEY idx_fichajes_user_fecha (fk_user, fecha_creacion),
	KEY idx_fichajes_fecha (fecha_creacion)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

// OpenMySQL opens and pings a MySQL pool for the given DSN. The DSN
// must carry parseTime=true so DATETIME columns scan into time.Time.
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(mysqlMaxOpenConns)
	db.SetMaxIdleConns(mysqlMaxIdleConns)
	db.SetConnMaxLifetime(mysqlConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), mysqlPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// MySQLStore implements Store on a fichajes table.
type MySQLStore struct {
	db    *sql.DB
	newID func() string
}

// NewMySQLStore wraps an open pool and bootstraps the schema.
func NewMySQLStore(db *sql.DB, newID func() string) (*MySQLStore, error) {
	if _, err := db.Exec(fichajesSchema); err != nil {
		return nil, fmt.Errorf("ensure fichajes schema: %w", err)
	}
	return &MySQLStore{db: db, newID: newID}, nil
}

// Close releases the underlying pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Save persists a punch, assigning an id when it has none.
func (s *MySQLStore) Save(ctx context.Context, p model.PunchEvent) (model.PunchEvent, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	lat, lng := "", ""
	if p.Location != nil {
		lat = strconv.FormatFloat(p.Location.Lat, 'f', 8, 64)
		lng = strconv.FormatFloat(p.Location.Lng, 'f', 8, 64)
	}
	var orig sql.NullTime
	if p.OriginalTimestamp != nil {
		orig = sql.NullTime{Time: p.OriginalTimestamp.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fichajes
			(id, fk_user, usuario_nombre, tipo, fecha_creacion, fecha_original,
			 lat, lng, location_warning, early_entry_warning,
			 observaciones, justification, duracion_efectiva, duracion_pausas)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.UserDisplayName, string(p.Kind), p.Timestamp.UTC(), orig,
		lat, lng, p.LocationWarning, p.EarlyEntryWarning,
		p.Observation, p.Justification, p.EffectiveMinutes, p.PausedMinutes,
	)
	if isDuplicateKey(err) {
		return model.PunchEvent{}, ErrDuplicate
	}
	if err != nil {
		return model.PunchEvent{}, fmt.Errorf("insert punch: %w", err)
	}
	return p, nil
}

// Punch returns a single punch by id.
func (s *MySQLStore) Punch(ctx context.Context, id string) (model.PunchEvent, error) {
	row := s.db.QueryRowContext(ctx, selectPunch+` WHERE id = ?`, id)
	p, err := scanPunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PunchEvent{}, ErrNotFound
	}
	if err != nil {
		return model.PunchEvent{}, fmt.Errorf("select punch: %w", err)
	}
	return p, nil
}

// List returns punches matching the filter, ordered by timestamp.
func (s *MySQLStore) List(ctx context.Context, f Filter) ([]model.PunchEvent, error) {
	query := selectPunch + ` WHERE 1=1`
	args := make([]any, 0, 3)
	if f.UserID != "" {
		query += ` AND fk_user = ?`
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		query += ` AND fecha_creacion >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND fecha_creacion <= ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY fecha_creacion ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}
	defer rows.Close()

	var out []model.PunchEvent
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan punch: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}
	return out, nil
}

// UpdateObservation replaces the observation of a punch.
func (s *MySQLStore) UpdateObservation(ctx context.Context, id, observation string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fichajes SET observaciones = ? WHERE id = ?`, observation, id)
	if err != nil {
		return fmt.Errorf("update observation: %w", err)
	}
	return requireRow(res)
}

// CorrectTimestamp moves a punch to a corrected instant, retaining the
// first original time.
func (s *MySQLStore) CorrectTimestamp(ctx context.Context, id string, corrected time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fichajes
		SET fecha_original = COALESCE(fecha_original, fecha_creacion),
		    fecha_creacion = ?
		WHERE id = ? AND fecha_creacion <> ?`,
		corrected.UTC(), id, corrected.UTC())
	if err != nil {
		return fmt.Errorf("correct timestamp: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("correct timestamp: %w", err)
	}
	if affected == 0 {
		// Either unknown id or a no-op correction; disambiguate.
		if _, err := s.Punch(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of punches tracked.
func (s *MySQLStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fichajes`).Scan(&n); err != nil {
		return 0
	}
	return n
}

const selectPunch = `
	SELECT id, fk_user, usuario_nombre, tipo, fecha_creacion, fecha_original,
	       lat, lng, location_warning, early_entry_warning,
	       COALESCE(observaciones, ''), COALESCE(justification, ''),
	       duracion_efectiva, duracion_pausas
	FROM fichajes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPunch(r rowScanner) (model.PunchEvent, error) {
	var (
		p          model.PunchEvent
		tipo       string
		orig       sql.NullTime
		lat, lng   string
		eff, pause sql.NullInt64
	)
	err := r.Scan(&p.ID, &p.UserID, &p.UserDisplayName, &tipo, &p.Timestamp, &orig,
		&lat, &lng, &p.LocationWarning, &p.EarlyEntryWarning,
		&p.Observation, &p.Justification, &eff, &pause)
	if err != nil {
		return model.PunchEvent{}, err
	}
	p.Kind = model.Kind(tipo)
	if orig.Valid {
		t := orig.Time
		p.OriginalTimestamp = &t
	}
	if la, err1 := strconv.ParseFloat(lat, 64); err1 == nil {
		if ln, err2 := strconv.ParseFloat(lng, 64); err2 == nil && (la != 0 || ln != 0) {
			p.Location = &model.Location{Lat: la, Lng: ln}
		}
	}
	if eff.Valid {
		v := int(eff.Int64)
		p.EffectiveMinutes = &v
	}
	if pause.Valid {
		v := int(pause.Int64)
		p.PausedMinutes = &v
	}
	return p, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"loyalty/internal/server/models"
	"loyalty/internal/server/repository"
	sm "loyalty/internal/shared/models"
)

type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			email_address TEXT NOT NULL,
			is_business_owner INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			owner_id TEXT UNIQUE NOT NULL,
			business_name TEXT NOT NULL,
			description TEXT,
			email_address TEXT NOT NULL,
			address TEXT,
			phone_number TEXT,
			FOREIGN KEY(owner_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS rewards (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			required_points TEXT NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 0,
			valid_from TIMESTAMP,
			valid_until TIMESTAMP,
			FOREIGN KEY(business_id) REFERENCES businesses(id)
		);
		CREATE TABLE IF NOT EXISTS enrollments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			business_id TEXT NOT NULL,
			points TEXT NOT NULL,
			UNIQUE(user_id, business_id),
			FOREIGN KEY(user_id) REFERENCES users(id),
			FOREIGN KEY(business_id) REFERENCES businesses(id)
		);
		CREATE TABLE IF NOT EXISTS revoked_tokens (
			token TEXT PRIMARY KEY,
			expires_at TIMESTAMP NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Users

func (r *Repository) CreateUser(ctx context.Context, u sm.User, passwordHash string) (sm.User, error) {
	u.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(id,username,password_hash,email_address,is_business_owner,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Username, passwordHash, u.EmailAddress, u.IsBusinessOwner, time.Now().UTC())
	if isUnique(err) {
		return sm.User{}, repository.ErrConflict
	}
	if err != nil {
		return sm.User{}, err
	}
	return u, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (models.UserRecord, error) {
	var rec models.UserRecord
	row := r.db.QueryRowContext(ctx,
		`SELECT id,username,password_hash,email_address,is_business_owner FROM users WHERE username = ?`, username)
	if err := row.Scan(&rec.ID, &rec.Username, &rec.PasswordHash, &rec.EmailAddress, &rec.IsBusinessOwner); err != nil {
		return models.UserRecord{}, notFound(err)
	}
	return rec, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (sm.User, error) {
	var u sm.User
	row := r.db.QueryRowContext(ctx,
		`SELECT id,username,email_address,is_business_owner FROM users WHERE id = ?`, id)
	if err := row.Scan(&u.ID, &u.Username, &u.EmailAddress, &u.IsBusinessOwner); err != nil {
		return sm.User{}, notFound(err)
	}
	return u, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Revoked tokens

func (r *Repository) RevokeToken(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens(token, expires_at) VALUES(?,?) ON CONFLICT(token) DO NOTHING`,
		token, expiresAt.UTC())
	return err
}

func (r *Repository) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM revoked_tokens WHERE token = ?`, token).Scan(&n)
	return n > 0, err
}

// PurgeRevokedTokens drops entries whose token would have expired anyway.
func (r *Repository) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Businesses

const businessColumns = `id,owner_id,business_name,description,email_address,address,phone_number`

func scanBusiness(s interface{ Scan(...any) error }) (models.BusinessRecord, error) {
	var b models.BusinessRecord
	var desc, addr, phone sql.NullString
	if err := s.Scan(&b.ID, &b.OwnerID, &b.BusinessName, &desc, &b.EmailAddress, &addr, &phone); err != nil {
		return models.BusinessRecord{}, err
	}
	b.Description, b.Address, b.PhoneNumber = strPtr(desc), strPtr(addr), strPtr(phone)
	return b, nil
}

// UpsertBusiness creates or replaces the single business owned by ownerID.
func (r *Repository) UpsertBusiness(ctx context.Context, ownerID string, b sm.Business) (sm.Business, error) {
	existing, err := r.GetBusinessByOwner(ctx, ownerID)
	switch {
	case err == nil:
		b.ID = existing.ID
	case errors.Is(err, repository.ErrNotFound):
		b.ID = uuid.NewString()
	default:
		return sm.Business{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO businesses(`+businessColumns+`) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(owner_id) DO UPDATE SET
			business_name=excluded.business_name,
			description=excluded.description,
			email_address=excluded.email_address,
			address=excluded.address,
			phone_number=excluded.phone_number
	`, b.ID, ownerID, b.BusinessName, nullString(b.Description), b.EmailAddress, nullString(b.Address), nullString(b.PhoneNumber))
	if err != nil {
		return sm.Business{}, err
	}
	return b, nil
}

func (r *Repository) GetBusinessByOwner(ctx context.Context, ownerID string) (models.BusinessRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id = ?`, ownerID)
	b, err := scanBusiness(row)
	if err != nil {
		return models.BusinessRecord{}, notFound(err)
	}
	return b, nil
}

func (r *Repository) GetBusiness(ctx context.Context, id string) (models.BusinessRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id)
	b, err := scanBusiness(row)
	if err != nil {
		return models.BusinessRecord{}, notFound(err)
	}
	return b, nil
}

func (r *Repository) ListBusinesses(ctx context.Context) ([]models.BusinessRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.BusinessRecord
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Rewards

const rewardColumns = `id,business_id,name,description,required_points,usage_count,valid_from,valid_until`

func scanReward(s interface{ Scan(...any) error }) (sm.Reward, error) {
	var rw sm.Reward
	var desc sql.NullString
	var pts string
	var from, until sql.NullTime
	if err := s.Scan(&rw.ID, &rw.BusinessID, &rw.Name, &desc, &pts, &rw.UsageCount, &from, &until); err != nil {
		return sm.Reward{}, err
	}
	d, err := decimal.NewFromString(pts)
	if err != nil {
		return sm.Reward{}, err
	}
	rw.RequiredPoints = d
	rw.Description = strPtr(desc)
	rw.ValidFromTimestamp, rw.ValidUntilTimestamp = timePtr(from), timePtr(until)
	return rw, nil
}

func (r *Repository) CreateReward(ctx context.Context, rw sm.Reward) (sm.Reward, error) {
	rw.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `INSERT INTO rewards(`+rewardColumns+`) VALUES(?,?,?,?,?,?,?,?)`,
		rw.ID, rw.BusinessID, rw.Name, nullString(rw.Description), rw.RequiredPoints.String(), rw.UsageCount,
		nullTime(rw.ValidFromTimestamp), nullTime(rw.ValidUntilTimestamp))
	if err != nil {
		return sm.Reward{}, err
	}
	return rw, nil
}

func (r *Repository) GetReward(ctx context.Context, id string) (sm.Reward, error) {
	rw, err := scanReward(r.db.QueryRowContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = ?`, id))
	if err != nil {
		return sm.Reward{}, notFound(err)
	}
	return rw, nil
}

func (r *Repository) UpdateReward(ctx context.Context, rw sm.Reward) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rewards SET name=?, description=?, required_points=?, valid_from=?, valid_until=? WHERE id=?`,
		rw.Name, nullString(rw.Description), rw.RequiredPoints.String(),
		nullTime(rw.ValidFromTimestamp), nullTime(rw.ValidUntilTimestamp), rw.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteReward(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListRewards returns the rewards of one business in creation order.
func (r *Repository) ListRewards(ctx context.Context, businessID string) ([]sm.Reward, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE business_id = ? ORDER BY rowid`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []sm.Reward{}
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// Enrollments

func scanEnrollment(s interface{ Scan(...any) error }, extra ...any) (sm.Enrollment, error) {
	var e sm.Enrollment
	var pts string
	dest := append([]any{&e.ID, &e.UserID, &e.BusinessID, &pts}, extra...)
	if err := s.Scan(dest...); err != nil {
		return sm.Enrollment{}, err
	}
	d, err := decimal.NewFromString(pts)
	if err != nil {
		return sm.Enrollment{}, err
	}
	e.Points = d
	return e, nil
}

func (r *Repository) CreateEnrollment(ctx context.Context, userID, businessID string) (sm.Enrollment, error) {
	e := sm.Enrollment{ID: uuid.NewString(), UserID: userID, BusinessID: businessID, Points: decimal.Zero}
	_, err := r.db.ExecContext(ctx, `INSERT INTO enrollments(id,user_id,business_id,points) VALUES(?,?,?,?)`,
		e.ID, e.UserID, e.BusinessID, e.Points.String())
	if isUnique(err) {
		return sm.Enrollment{}, repository.ErrConflict
	}
	if err != nil {
		return sm.Enrollment{}, err
	}
	return e, nil
}

func (r *Repository) GetEnrollment(ctx context.Context, userID, businessID string) (sm.Enrollment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,user_id,business_id,points FROM enrollments WHERE user_id = ? AND business_id = ?`, userID, businessID)
	e, err := scanEnrollment(row)
	if err != nil {
		return sm.Enrollment{}, notFound(err)
	}
	return e, nil
}

func (r *Repository) DeleteEnrollment(ctx context.Context, userID, businessID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE user_id = ? AND business_id = ?`, userID, businessID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListEnrollments returns every enrollment; used for business similarity.
func (r *Repository) ListEnrollments(ctx context.Context) ([]sm.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,user_id,business_id,points FROM enrollments ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sm.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) ListUserEnrollments(ctx context.Context, userID string) ([]sm.UserEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.business_id, e.points,
		       b.id, b.owner_id, b.business_name, b.description, b.email_address, b.address, b.phone_number
		FROM enrollments e JOIN businesses b ON b.id = e.business_id
		WHERE e.user_id = ? ORDER BY e.rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []sm.UserEnrollment{}
	for rows.Next() {
		var b models.BusinessRecord
		var desc, addr, phone sql.NullString
		e, err := scanEnrollment(rows, &b.ID, &b.OwnerID, &b.BusinessName, &desc, &b.EmailAddress, &addr, &phone)
		if err != nil {
			return nil, err
		}
		b.Description, b.Address, b.PhoneNumber = strPtr(desc), strPtr(addr), strPtr(phone)
		out = append(out, sm.UserEnrollment{Business: b.Business, Enrollment: e})
	}
	return out, rows.Err()
}

func (r *Repository) ListBusinessEnrollments(ctx context.Context, businessID string) ([]sm.BusinessEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.business_id, e.points,
		       u.id, u.username, u.email_address, u.is_business_owner
		FROM enrollments e JOIN users u ON u.id = e.user_id
		WHERE e.business_id = ? ORDER BY e.rowid`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []sm.BusinessEnrollment{}
	for rows.Next() {
		var u sm.User
		e, err := scanEnrollment(rows, &u.ID, &u.Username, &u.EmailAddress, &u.IsBusinessOwner)
		if err != nil {
			return nil, err
		}
		out = append(out, sm.BusinessEnrollment{User: u, Enrollment: e})
	}
	return out, rows.Err()
}

// SetPoints replaces the balance only if it still equals expected.
func (r *Repository) SetPoints(ctx context.Context, enrollmentID string, expected, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE enrollments SET points = ? WHERE id = ? AND points = ?`,
		balance.String(), enrollmentID, expected.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrStale
	}
	return nil
}

// Redeem debits the enrollment and counts one use of the reward in a single
// transaction. It fails with ErrStale if the balance moved since it was read.
func (r *Repository) Redeem(ctx context.Context, enrollmentID, rewardID string, expected, balance decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE enrollments SET points = ? WHERE id = ? AND points = ?`,
		balance.String(), enrollmentID, expected.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrStale
	}
	res, err = tx.ExecContext(ctx, `UPDATE rewards SET usage_count = usage_count + 1 WHERE id = ?`, rewardID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

package volunteer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// Repository persists volunteers in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, volunteer_id, full_name, dob, age, email, phone, preferred_role, preferred_location,
	tshirt_size, emergency_name, emergency_phone, available_dates, volunteer_agreement, signature, created_at`

// Insert stores a volunteer.
func (r *Repository) Insert(ctx context.Context, v model.Volunteer) (model.Volunteer, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO volunteers (id, volunteer_id, full_name, dob, age, email, phone, preferred_role,
			preferred_location, tshirt_size, emergency_name, emergency_phone, available_dates,
			volunteer_agreement, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at
	`, v.ID, v.VolunteerID, v.FullName, v.DOB, v.Age, v.Email, v.Phone, v.PreferredRole,
		v.PreferredLocation, v.TShirtSize, v.EmergencyName, v.EmergencyPhone,
		store.JSONB[[]string]{V: &v.AvailableDates}, v.VolunteerAgreement, v.Signature)
	if err := row.Scan(&v.CreatedAt); err != nil {
		return model.Volunteer{}, err
	}
	return v, nil
}

// LatestVolunteerID returns the most recently created volunteer id, or "".
func (r *Repository) LatestVolunteerID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT volunteer_id FROM volunteers ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// List returns volunteers, newest first.
func (r *Repository) List(ctx context.Context) ([]model.Volunteer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM volunteers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// Get returns a volunteer by document id, or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (model.Volunteer, error) {
	v, err := scanVolunteer(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM volunteers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Volunteer{}, store.ErrNotFound
	}
	return v, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVolunteer(row rowScanner) (model.Volunteer, error) {
	var v model.Volunteer
	err := row.Scan(&v.ID, &v.VolunteerID, &v.FullName, &v.DOB, &v.Age, &v.Email, &v.Phone,
		&v.PreferredRole, &v.PreferredLocation, &v.TShirtSize, &v.EmergencyName, &v.EmergencyPhone,
		store.JSONB[[]string]{V: &v.AvailableDates}, &v.VolunteerAgreement, &v.Signature, &v.CreatedAt)
	return v, err
}

// Delete removes a volunteer.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

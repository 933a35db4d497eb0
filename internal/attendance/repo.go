package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// Repository persists participants and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const participantColumns = `
	id, identifier, family_id, name, dob, age, category, category_code,
	father_name, mother_name, primary_contact_number, primary_contact_relation,
	secondary_contact_number, secondary_contact_relation, email, residence,
	parent_agreement, parent_signature, medical_conditions, medical_notes, team_id,
	in_session, breaks, session_history, id_generated, id_generated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (model.Participant, error) {
	var p model.Participant
	err := row.Scan(
		&p.ID, &p.Identifier, &p.FamilyID, &p.Name, &p.DOB, &p.Age, &p.Category, &p.CategoryCode,
		&p.FatherName, &p.MotherName, &p.PrimaryContactNumber, &p.PrimaryContactRelation,
		&p.SecondaryContactNumber, &p.SecondaryContactRelation, &p.Email, &p.Residence,
		&p.ParentAgreement, &p.ParentSignature, store.JSONB[[]string]{V: &p.MedicalConditions}, &p.MedicalNotes, &p.TeamID,
		&p.InSession, store.JSONB[[]model.Transition]{V: &p.Breaks}, store.JSONB[[]model.Transition]{V: &p.SessionHistory},
		&p.IDGenerated, &p.IDGeneratedAt, &p.CreatedAt,
	)
	return p, err
}

// InsertParticipants writes a family batch in one transaction and returns the stored rows.
func (r *Repository) InsertParticipants(ctx context.Context, ps []model.Participant) ([]model.Participant, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.Participant, 0, len(ps))
	for _, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO participants (
				id, identifier, family_id, name, dob, age, category, category_code,
				father_name, mother_name, primary_contact_number, primary_contact_relation,
				secondary_contact_number, secondary_contact_relation, email, residence,
				parent_agreement, parent_signature, medical_conditions, medical_notes, team_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
			RETURNING `+participantColumns,
			p.ID, p.Identifier, p.FamilyID, p.Name, p.DOB, p.Age, p.Category, p.CategoryCode,
			p.FatherName, p.MotherName, p.PrimaryContactNumber, p.PrimaryContactRelation,
			p.SecondaryContactNumber, p.SecondaryContactRelation, p.Email, p.Residence,
			p.ParentAgreement, p.ParentSignature, store.JSONB[[]string]{V: &p.MedicalConditions}, p.MedicalNotes, p.TeamID,
		)
		saved, err := scanParticipant(row)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return nil, store.ErrDuplicate
			}
			return nil, err
		}
		out = append(out, saved)
	}
	return out, tx.Commit()
}

// LatestIdentifier returns the most recently created identifier for a category code.
func (r *Repository) LatestIdentifier(ctx context.Context, code string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT identifier FROM participants
		WHERE category_code = $1
		ORDER BY created_at DESC, identifier DESC
		LIMIT 1
	`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// ListParticipants returns every participant ordered by identifier.
func (r *Repository) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// GetParticipant returns a participant by document id, or nil when absent.
func (r *Repository) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	return r.one(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
}

// FindByIdentifier looks a participant up by lower-cased identifier, or nil when absent.
func (r *Repository) FindByIdentifier(ctx context.Context, normalized string) (*model.Participant, error) {
	return r.one(ctx, `SELECT `+participantColumns+` FROM participants WHERE identifier_lower = $1`, normalized)
}

func (r *Repository) one(ctx context.Context, query string, args ...any) (*model.Participant, error) {
	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// DeleteParticipant removes a participant.
func (r *Repository) DeleteParticipant(ctx context.Context, id string) error {
	return expectRow(r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id))
}

// SetTeam assigns or clears a participant's team.
func (r *Repository) SetTeam(ctx context.Context, id string, teamID null.String) error {
	return expectRow(r.db.ExecContext(ctx, `UPDATE participants SET team_id = $2 WHERE id = $1`, id, teamID))
}

// MarkIDGenerated flags the participant's badge as generated.
func (r *Repository) MarkIDGenerated(ctx context.Context, id string) (*model.Participant, error) {
	return r.one(ctx, `
		UPDATE participants SET id_generated = TRUE, id_generated_at = NOW()
		WHERE id = $1
		RETURNING `+participantColumns, id)
}

// AppendBreak atomically appends a break entry stamped with the server clock.
func (r *Repository) AppendBreak(ctx context.Context, id, typ string) (model.Transition, error) {
	return r.appendEntry(ctx, `
		UPDATE participants
		SET breaks = breaks || jsonb_build_array(jsonb_build_object('type', $2::text, 'time', to_jsonb(NOW())))
		WHERE id = $1
		RETURNING NOW()
	`, id, typ)
}

// RecordScan writes a sign-in or sign-out record and the matching session entry in one
// transaction; the record gets the server timestamp. A missing participant rolls both back.
func (r *Repository) RecordScan(ctx context.Context, participantID string, rec model.AttendanceRecord, entry string, inSession bool) (model.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, student_name, mode)
		VALUES ($1,$2,$3,$4)
		RETURNING occurred_at
	`, rec.ID, rec.StudentID, rec.StudentName, rec.Mode).Scan(&rec.Timestamp); err != nil {
		return model.AttendanceRecord{}, err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE participants
		SET session_history = session_history || jsonb_build_array(jsonb_build_object('type', $2::text, 'time', to_jsonb($4::timestamptz))),
			in_session = $3
		WHERE id = $1
	`, participantID, entry, inSession, rec.Timestamp.Time)
	if err := expectRow(res, err); err != nil {
		return model.AttendanceRecord{}, err
	}
	return rec, tx.Commit()
}

// RecentAttendance returns the latest record of mode for studentID inside window, or nil.
func (r *Repository) RecentAttendance(ctx context.Context, studentID, mode string, window time.Duration) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, student_name, mode, occurred_at
		FROM attendance
		WHERE student_id = $1 AND mode = $2 AND occurred_at >= NOW() - ($3 * interval '1 second')
		ORDER BY occurred_at DESC
		LIMIT 1
	`, studentID, mode, window.Seconds())
	var rec model.AttendanceRecord
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Mode, &rec.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListAttendance returns every attendance record, newest first.
func (r *Repository) ListAttendance(ctx context.Context) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, student_name, mode, occurred_at
		FROM attendance
		ORDER BY occurred_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Mode, &rec.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func expectRow(res sql.Result, err error) error {
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

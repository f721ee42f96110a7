package pg

import (
	"context"
	"database/sql"
	"errors"

	"medsys.org/internal/auth"
	"medsys.org/internal/ids"
	"medsys.org/internal/records"
)

var _ records.Store = (*Store)(nil)

func (s *Store) GetRecord(ctx context.Context, id string) (records.Record, error) {
	if s.db == nil {
		return records.Record{}, errNoDB
	}
	var (
		rec  records.Record
		next sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, patient_id, medical_officer_id,
		       next_appointment, remark, status, created_at, updated_at
		from records
		where id = $1
	`, id).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.PatientID, &rec.MedicalOfficerID,
		&next, &rec.Remark, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, records.ErrNotFound
	}
	if err != nil {
		return records.Record{}, wrap(err, "PG_RECORD_LOOKUP", "load record")
	}
	if next.Valid {
		t := next.Time
		rec.NextAppointment = &t
	}
	return rec, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec records.Record) (records.Record, error) {
	if s.db == nil {
		return records.Record{}, errNoDB
	}
	rec.ID = ids.NewAt(rec.CreatedAt)
	var next sql.NullTime
	if rec.NextAppointment != nil {
		next = sql.NullTime{Time: *rec.NextAppointment, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into records (id, name, description, patient_id, medical_officer_id,
		                     next_appointment, remark, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Name, rec.Description, rec.PatientID, rec.MedicalOfficerID,
		next, rec.Remark, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return records.Record{}, auth.ErrNotFound
		}
		return records.Record{}, wrap(err, "PG_RECORD_CREATE", "insert record")
	}
	return rec, nil
}

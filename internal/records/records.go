// Package records serves medical record lookups. Access to a record is
// limited to its two parties: the patient and the medical officer.
package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"medsys.org/internal/result"
)

var ErrNotFound = errors.New("records: not found")

type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)

type Record struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	PatientID        string     `json:"patientId"`
	MedicalOfficerID string     `json:"medicalOfficerId"`
	NextAppointment  *time.Time `json:"nextAppointment,omitempty"`
	Remark           string     `json:"remark"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"dateCreated"`
	UpdatedAt        time.Time  `json:"dateModified"`
}

// OwnedBy reports whether userID is one of the record's two parties.
func (r Record) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	return r.MedicalOfficerID == userID || r.PatientID == userID
}

// NewRecord is the caller-supplied part of a record.
type NewRecord struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	PatientID       string     `json:"patientId"`
	NextAppointment *time.Time `json:"nextAppointment"`
	Remark          string     `json:"remark"`
}

// Validate reports missing required fields keyed by field name. It returns
// nil when the input is complete.
func (n NewRecord) Validate() *result.Builder {
	b := result.NewBuilder()
	required := []struct {
		key, value string
	}{
		{"Name", n.Name},
		{"Description", n.Description},
		{"PatientId", n.PatientID},
		{"Remark", n.Remark},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			b.Add(f.key, "The "+f.key+" field is required.")
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return b
}

type Store interface {
	GetRecord(ctx context.Context, id string) (Record, error)
	CreateRecord(ctx context.Context, rec Record) (Record, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store, now func() time.Time) (*Service, error) {
	if store == nil {
		return nil, errors.New("records: store is required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, now: now}, nil
}

// Get loads one record. Ownership is checked by the caller.
func (s *Service) Get(ctx context.Context, id string) (result.Outcome[Record], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return result.BadRequestf[Record]("RecordId cannot be null or empty"), nil
	}
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result.NotFoundf[Record]("Record not found"), nil
		}
		return result.Outcome[Record]{}, err
	}
	return result.Succeeded(rec), nil
}

// Create stores a new open record authored by officerID.
func (s *Service) Create(ctx context.Context, officerID string, in NewRecord) (result.Outcome[Record], error) {
	if strings.TrimSpace(officerID) == "" {
		return result.BadRequestf[Record]("Record cannot be null"), nil
	}
	if b := in.Validate(); b != nil {
		return result.BadRequestf[Record]("%s", b.Items()[0].ErrorMessages[0]), nil
	}
	now := s.now()
	created, err := s.store.CreateRecord(ctx, Record{
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		PatientID:        strings.TrimSpace(in.PatientID),
		MedicalOfficerID: officerID,
		NextAppointment:  in.NextAppointment,
		Remark:           strings.TrimSpace(in.Remark),
		Status:           StatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result.Outcome[Record]{}, err
		}
		return result.Failedf[Record]("Unable to add"), nil
	}
	return result.Succeeded(created), nil
}

package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsys.org/internal/result"
)

type stubStore struct {
	records   map[string]Record
	createErr error
	last      Record
}

func (s *stubStore) GetRecord(_ context.Context, id string) (Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *stubStore) CreateRecord(_ context.Context, rec Record) (Record, error) {
	if s.createErr != nil {
		return Record{}, s.createErr
	}
	rec.ID = "rec-1"
	s.last = rec
	return rec, nil
}

var now = time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(store, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestOwnedBy(t *testing.T) {
	rec := Record{PatientID: "p1", MedicalOfficerID: "m1"}
	assert.True(t, rec.OwnedBy("p1"))
	assert.True(t, rec.OwnedBy("m1"))
	assert.False(t, rec.OwnedBy("x"))
	assert.False(t, rec.OwnedBy(""))
	assert.False(t, Record{}.OwnedBy(""))
}

func TestGet(t *testing.T) {
	store := &stubStore{records: map[string]Record{"r1": {ID: "r1", PatientID: "p1"}}}
	svc := newTestService(t, store)
	ctx := context.Background()

	out, err := svc.Get(ctx, " ")
	require.NoError(t, err)
	assert.Equal(t, result.BadRequest, out.Kind)
	assert.Equal(t, "RecordId cannot be null or empty", out.Message)

	out, err = svc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, result.NotFound, out.Kind)
	assert.Equal(t, "Record not found", out.Message)

	out, err = svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, "p1", out.Data.PatientID)
}

func TestValidateKeysMissingFields(t *testing.T) {
	b := NewRecord{Name: "Checkup"}.Validate()
	require.NotNil(t, b)
	keys := []string{}
	for _, item := range b.Items() {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"Description", "PatientId", "Remark"}, keys)

	assert.Nil(t, NewRecord{Name: "a", Description: "b", PatientID: "c", Remark: "d"}.Validate())
}

func TestCreate(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store)
	in := NewRecord{Name: "Checkup", Description: "Annual", PatientID: "p1", Remark: "fine"}

	out, err := svc.Create(context.Background(), "m1", in)
	require.NoError(t, err)
	require.True(t, out.OK())
	assert.Equal(t, "rec-1", out.Data.ID)
	assert.Equal(t, "m1", store.last.MedicalOfficerID)
	assert.Equal(t, StatusOpen, store.last.Status)
	assert.Equal(t, now, store.last.CreatedAt)
}

func TestCreateFailures(t *testing.T) {
	store := &stubStore{createErr: errors.New("insert failed")}
	svc := newTestService(t, store)
	in := NewRecord{Name: "Checkup", Description: "Annual", PatientID: "p1", Remark: "fine"}

	out, err := svc.Create(context.Background(), "m1", in)
	require.NoError(t, err)
	assert.Equal(t, result.Failed, out.Kind)
	assert.Equal(t, "Unable to add", out.Message)

	out, err = svc.Create(context.Background(), "m1", NewRecord{})
	require.NoError(t, err)
	assert.Equal(t, result.BadRequest, out.Kind)
	assert.Equal(t, "The Name field is required.", out.Message)

	store.createErr = context.Canceled
	_, err = svc.Create(context.Background(), "m1", in)
	assert.ErrorIs(t, err, context.Canceled)
}

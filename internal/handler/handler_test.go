package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeScheduledStore struct {
	items     map[string]*domain.ScheduledItem
	cancelErr error
	cancelled []string
}

func (s *fakeScheduledStore) Create(ctx context.Context, item *domain.ScheduledItem) error {
	item.ID = primitive.NewObjectID()
	return nil
}

func (s *fakeScheduledStore) FindByID(ctx context.Context, id string) (*domain.ScheduledItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return item, nil
}

func (s *fakeScheduledStore) List(ctx context.Context, page, pageSize int) ([]*domain.ScheduledItem, int64, error) {
	return nil, 0, nil
}

func (s *fakeScheduledStore) Cancel(ctx context.Context, id string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

type fakeRecurringStore struct {
	items       map[string]*domain.RecurringItem
	activeCalls []bool
	lastNext    *time.Time
}

func (s *fakeRecurringStore) Create(ctx context.Context, item *domain.RecurringItem) error {
	item.ID = primitive.NewObjectID()
	return nil
}

func (s *fakeRecurringStore) FindByID(ctx context.Context, id string) (*domain.RecurringItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return item, nil
}

func (s *fakeRecurringStore) List(ctx context.Context, page, pageSize int) ([]*domain.RecurringItem, int64, error) {
	return nil, 0, nil
}

func (s *fakeRecurringStore) SetActive(ctx context.Context, id string, active bool, nextFireAt *time.Time) error {
	s.activeCalls = append(s.activeCalls, active)
	s.lastNext = nextFireAt
	return nil
}

func scheduledRouter(store *fakeScheduledStore) *gin.Engine {
	h := NewScheduledHandler(store, zerolog.Nop())
	r := gin.New()
	r.DELETE("/scheduled/:id", h.Cancel)
	return r
}

func recurringRouter(store *fakeRecurringStore) *gin.Engine {
	h := NewRecurringHandler(store, zerolog.Nop())
	r := gin.New()
	r.PATCH("/recurring/:id/active", h.SetActive)
	return r
}

func TestScheduledHandler_CancelUnknownIDIsNotFound(t *testing.T) {
	store := &fakeScheduledStore{items: map[string]*domain.ScheduledItem{}}
	r := scheduledRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/scheduled/"+primitive.NewObjectID().Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.cancelled)
}

func TestScheduledHandler_CancelNonPendingIsConflict(t *testing.T) {
	id := primitive.NewObjectID()
	store := &fakeScheduledStore{
		items: map[string]*domain.ScheduledItem{
			id.Hex(): {ID: id, Status: domain.ItemStatusSent},
		},
		cancelErr: repository.ErrItemNotPending,
	}
	r := scheduledRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/scheduled/"+id.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduledHandler_CancelPendingItem(t *testing.T) {
	id := primitive.NewObjectID()
	store := &fakeScheduledStore{
		items: map[string]*domain.ScheduledItem{
			id.Hex(): {ID: id, Status: domain.ItemStatusPending},
		},
	}
	r := scheduledRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/scheduled/"+id.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.cancelled, 1)
	assert.Equal(t, id.Hex(), store.cancelled[0])
}

func patchActive(t *testing.T, r *gin.Engine, id string, active bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(gin.H{"is_active": active})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/recurring/"+id+"/active", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRecurringHandler_DeactivateUnknownIDIsNotFound(t *testing.T) {
	store := &fakeRecurringStore{items: map[string]*domain.RecurringItem{}}
	r := recurringRouter(store)

	w := patchActive(t, r, primitive.NewObjectID().Hex(), false)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.activeCalls)
}

func TestRecurringHandler_DeactivateClearsNextFireTime(t *testing.T) {
	id := primitive.NewObjectID()
	store := &fakeRecurringStore{
		items: map[string]*domain.RecurringItem{
			id.Hex(): {ID: id, IsActive: true, Schedule: domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: "09:00"}},
		},
	}
	r := recurringRouter(store)

	w := patchActive(t, r, id.Hex(), false)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.activeCalls, 1)
	assert.False(t, store.activeCalls[0])
	assert.Nil(t, store.lastNext)
}

func TestRecurringHandler_ActivateRecomputesNextFireTime(t *testing.T) {
	id := primitive.NewObjectID()
	store := &fakeRecurringStore{
		items: map[string]*domain.RecurringItem{
			id.Hex(): {ID: id, Schedule: domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: "09:00"}},
		},
	}
	r := recurringRouter(store)

	w := patchActive(t, r, id.Hex(), true)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.activeCalls, 1)
	assert.True(t, store.activeCalls[0])
	require.NotNil(t, store.lastNext)
	assert.True(t, store.lastNext.After(time.Now()))
}

func TestRecurringHandler_ActivateExpiredScheduleRejected(t *testing.T) {
	id := primitive.NewObjectID()
	past := time.Now().AddDate(0, 0, -1)
	store := &fakeRecurringStore{
		items: map[string]*domain.RecurringItem{
			id.Hex(): {ID: id, Schedule: domain.Schedule{Frequency: domain.FrequencyDaily, DailyTime: "09:00", EndDate: &past}},
		},
	}
	r := recurringRouter(store)

	w := patchActive(t, r, id.Hex(), true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.activeCalls)
}

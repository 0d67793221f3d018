package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
)

type mockRepo struct {
	events    []Event
	insertErr error
}

func (m *mockRepo) Insert(ctx context.Context, e Event) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockRepo) Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]Event, error) {
	if offset >= len(m.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.events) {
		end = len(m.events)
	}
	return m.events[offset:end], nil
}

func (m *mockRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []Event
	var removed int64
	for _, e := range m.events {
		if e.At.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return removed, nil
}

func TestRecordDenialCapturesDecision(t *testing.T) {
	repo := &mockRepo{}
	service := NewService(repo, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	principal := identity.Principal{Kind: identity.KindSessionUser, UserID: 30}
	resourceID := uuid.New()
	service.RecordDenial(context.Background(), principal, authz.ProductRef(resourceID), authz.LevelEdit, authz.OutcomeDenied)

	require.Len(t, repo.events, 1)
	e := repo.events[0]
	assert.Equal(t, now, e.At)
	assert.Equal(t, "session_user", e.PrincipalKind)
	assert.Equal(t, int64(30), e.UserID)
	assert.Equal(t, "product", e.ResourceKind)
	assert.Equal(t, resourceID.String(), e.ResourceID)
	assert.Equal(t, "edit", e.Level)
	assert.Equal(t, "denied", e.Outcome)
}

func TestRecordDenialSwallowsRepositoryFailure(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("connection reset")}
	service := NewService(repo, nil)

	// Must not panic or propagate; the guarded request already answered.
	service.RecordDenial(context.Background(), identity.Anonymous(), authz.OrderRef(uuid.New()), authz.LevelView, authz.OutcomeDenied)
}

func TestTimelinePaging(t *testing.T) {
	repo := &mockRepo{}
	for i := 0; i < 25; i++ {
		repo.events = append(repo.events, Event{ID: int64(i + 1)})
	}
	service := NewService(repo, nil)

	first, err := service.Timeline(context.Background(), TimelineFilters{PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, first.Rows, 20)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Zero(t, first.Paging.PrevPage)

	second, err := service.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, second.Rows, 5)
	assert.False(t, second.Paging.HasNext)
	assert.Equal(t, 1, second.Paging.PrevPage)
}

func TestPruneRemovesOldEvents(t *testing.T) {
	repo := &mockRepo{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.events = []Event{
		{ID: 1, At: now.Add(-100 * 24 * time.Hour)},
		{ID: 2, At: now.Add(-time.Hour)},
	}
	service := NewService(repo, nil)
	service.now = func() time.Time { return now }

	removed, err := service.Prune(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	require.Len(t, repo.events, 1)
	assert.Equal(t, int64(2), repo.events[0].ID)
}

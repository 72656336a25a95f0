package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/icscal/internal/cyu"
	"github.com/pershin-daniil/icscal/pkg/crypt"
	"github.com/pershin-daniil/icscal/pkg/logger"
	"github.com/pershin-daniil/icscal/pkg/models"
	"github.com/pershin-daniil/icscal/pkg/pgstore"
)

type fakeFetcher struct {
	password string
	events   []cyu.RemoteEvent
	lastView cyu.View
}

func (f *fakeFetcher) Login(_ context.Context, username, password string) (string, error) {
	if password != f.password {
		return "", cyu.ErrUnauthorized
	}
	return "session-" + username, nil
}

func (f *fakeFetcher) Infos(_ context.Context, session string) (cyu.Infos, error) {
	if !strings.HasPrefix(session, "session-") {
		return cyu.Infos{}, cyu.ErrUnauthorized
	}
	return cyu.Infos{FederationID: "fed-" + strings.TrimPrefix(session, "session-"), DisplayName: "Jane Doe"}, nil
}

func (f *fakeFetcher) Events(_ context.Context, q cyu.Query) ([]cyu.RemoteEvent, error) {
	f.lastView = q.View
	return f.events, nil
}

func (f *fakeFetcher) AllEvents(_ context.Context, _, _ string, _ cyu.ColorBy) ([]cyu.RemoteEvent, error) {
	return f.events, nil
}

type memStore struct {
	mu     sync.Mutex
	nextID int64
	tokens []models.Token
}

func (m *memStore) CreateToken(_ context.Context, userID, fingerprint string) (models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	token := models.Token{ID: m.nextID, UserID: userID, Token: fingerprint, CreatedAt: time.Now()}
	m.tokens = append(m.tokens, token)
	return token, nil
}

func (m *memStore) ListTokens(_ context.Context, userID string) ([]models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Token
	for _, t := range m.tokens {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *memStore) DeleteToken(_ context.Context, userID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tokens {
		if t.UserID == userID && t.ID == id {
			m.tokens = append(m.tokens[:i], m.tokens[i+1:]...)
			return nil
		}
	}
	return pgstore.ErrTokenNotFound
}

func (m *memStore) TouchToken(_ context.Context, fingerprint string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].Token == fingerprint {
			at := at
			m.tokens[i].LastUsedAt = &at
		}
	}
	return nil
}

func (m *memStore) DeleteIdleTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tokens[:0]
	var n int64
	for _, t := range m.tokens {
		used := t.CreatedAt
		if t.LastUsedAt != nil {
			used = *t.LastUsedAt
		}
		if used.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return n, nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string, userID string) error {
	r.messages = append(r.messages, message+"/"+userID)
	return nil
}

type stubOverlay struct {
	events []models.CalendarEvent
	err    error
}

func (s stubOverlay) Events(context.Context, time.Time) ([]models.CalendarEvent, error) {
	return s.events, s.err
}

func remoteEvents(t *testing.T) []cyu.RemoteEvent {
	t.Helper()
	start, err := models.ParseLocalTime("2024-09-30T08:30:00")
	require.NoError(t, err)
	end, err := models.ParseLocalTime("2024-09-30T10:00:00")
	require.NoError(t, err)
	return []cyu.RemoteEvent{{
		ID:              "42",
		Start:           start,
		End:             &end,
		RawDescription:  "Algorithms<br />A101",
		BackgroundColor: "#ff8800",
		EventCategory:   "Examen",
	}}
}

func newService(t *testing.T) (*CalendarService, *memStore, *recordingNotifier) {
	t.Helper()
	enc, err := crypt.New("secret")
	require.NoError(t, err)
	store := &memStore{}
	notifier := &recordingNotifier{}
	fetcher := &fakeFetcher{password: "pw", events: remoteEvents(t)}
	return NewCalendarService(logger.New(), fetcher, store, enc, notifier), store, notifier
}

func TestLogin(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	auth, infos, err := s.Login(ctx, "jdoe", "pw")
	require.NoError(t, err)
	assert.Equal(t, Auth{UserID: "fed-jdoe", Session: "session-jdoe"}, auth)
	assert.Equal(t, models.Infos{ID: "fed-jdoe", Name: "Jane Doe"}, infos)

	_, _, err = s.Login(ctx, "jdoe", "bad")
	require.ErrorIs(t, err, cyu.ErrUnauthorized)
}

func TestAllEventsWithOverlay(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	auth := Auth{UserID: "fed-jdoe", Session: "session-jdoe"}

	events, err := s.AllEvents(ctx, auth)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Algorithms\nA101", events[0].Description)

	s.WithOverlay(stubOverlay{events: []models.CalendarEvent{{ID: "h", Description: "Holiday", AllDay: true}}})
	events, err = s.AllEvents(ctx, auth)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	s.WithOverlay(stubOverlay{err: errors.New("quota")})
	events, err = s.AllEvents(ctx, auth)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTokenLifecycle(t *testing.T) {
	s, store, notifier := newService(t)
	ctx := context.Background()
	auth := Auth{UserID: "fed-jdoe", Session: "session-jdoe"}

	token, err := s.CreateToken(ctx, auth, models.LoginPayload{Username: "jdoe", Password: "pw"})
	require.NoError(t, err)
	tokens, err := s.ListTokens(ctx, auth)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, token[:models.TokenFingerprintLen], tokens[0].Token)

	feed, err := s.Feed(ctx, token)
	require.NoError(t, err)
	cal, err := ical.ParseCalendar(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	assert.Equal(t, "42@cyu-calendar", cal.Events()[0].Id())
	require.NotNil(t, store.tokens[0].LastUsedAt)

	err = s.DeleteToken(ctx, Auth{UserID: "someone-else"}, tokens[0].ID)
	require.ErrorIs(t, err, pgstore.ErrTokenNotFound)
	require.NoError(t, s.DeleteToken(ctx, auth, tokens[0].ID))

	assert.Equal(t, []string{"ics token created/fed-jdoe", "ics token 1 revoked/fed-jdoe"}, notifier.messages)
}

func TestFeedRejectsBadTokens(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Feed(ctx, "garbage")
	require.ErrorIs(t, err, crypt.ErrInvalidToken)

	token, err := s.CreateToken(ctx, Auth{UserID: "fed-jdoe"}, models.LoginPayload{Username: "jdoe", Password: "changed"})
	require.NoError(t, err)
	_, err = s.Feed(ctx, token)
	require.ErrorIs(t, err, cyu.ErrUnauthorized)
}

func TestSweepIdleTokens(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	_, err := store.CreateToken(ctx, "u", "old")
	require.NoError(t, err)
	store.tokens[0].CreatedAt = time.Now().Add(-100 * 24 * time.Hour)
	_, err = store.CreateToken(ctx, "u", "new")
	require.NoError(t, err)

	n, err := s.SweepIdleTokens(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, store.tokens, 1)
	assert.Equal(t, "new", store.tokens[0].Token)
}

package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/pershin-daniil/icscal/pkg/logger"
)

type stubLister struct {
	items      []*gcal.Event
	err        error
	calendarID string
}

func (s *stubLister) List(_ context.Context, calendarID string, _ time.Time) ([]*gcal.Event, error) {
	s.calendarID = calendarID
	return s.items, s.err
}

func TestOverlayEvents(t *testing.T) {
	lister := &stubLister{items: []*gcal.Event{
		{Id: "a", Summary: "Toussaint", Start: &gcal.EventDateTime{Date: "2024-11-01"}},
		{
			Id:      "b",
			Summary: "Open day",
			Start:   &gcal.EventDateTime{DateTime: "2024-11-05T09:00:00+01:00"},
			End:     &gcal.EventDateTime{DateTime: "2024-11-05T12:00:00+01:00"},
		},
		{Id: "c", Summary: "broken"},
	}}
	overlay := New(logger.New(), lister, "shared@group.calendar.google.com")

	events, err := overlay.Events(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "shared@group.calendar.google.com", lister.calendarID)
	require.Len(t, events, 2)

	assert.True(t, events[0].AllDay)
	assert.Equal(t, "Toussaint", events[0].Description)
	assert.Equal(t, "2024-11-01T00:00:00", events[0].Start.String())

	assert.False(t, events[1].AllDay)
	assert.Equal(t, "2024-11-05T09:00:00", events[1].Start.String())
	require.NotNil(t, events[1].End)
	assert.Equal(t, "2024-11-05T12:00:00", events[1].End.String())
	assert.Equal(t, overlayColor, events[1].BackgroundColor)
}

func TestOverlayError(t *testing.T) {
	overlay := New(logger.New(), &stubLister{err: errors.New("quota")}, "x")
	_, err := overlay.Events(context.Background(), time.Now())
	require.Error(t, err)
}

package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/pershin-daniil/icscal/pkg/models"
)

const (
	maxResults      = 250
	overlayColor    = "#9e9e9e"
	googleDateStamp = "2006-01-02"
)

// EventLister is the slice of the Google Calendar API the overlay needs.
type EventLister interface {
	List(ctx context.Context, calendarID string, from time.Time) ([]*gcal.Event, error)
}

// Overlay reads one shared Google calendar (holidays, campus closures) whose
// events are added to every user's timetable.
type Overlay struct {
	log        *logrus.Entry
	lister     EventLister
	calendarID string
}

func New(log *logrus.Logger, lister EventLister, calendarID string) *Overlay {
	return &Overlay{
		log:        log.WithField("component", "calendar"),
		lister:     lister,
		calendarID: calendarID,
	}
}

func (o *Overlay) Events(ctx context.Context, from time.Time) ([]models.CalendarEvent, error) {
	items, err := o.lister.List(ctx, o.calendarID, from)
	if err != nil {
		return nil, fmt.Errorf("err listing shared calendar events: %w", err)
	}
	result := make([]models.CalendarEvent, 0, len(items))
	for _, item := range items {
		event, err := convert(item)
		if err != nil {
			o.log.Warnf("skipping shared event %s: %v", item.Id, err)
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func convert(item *gcal.Event) (models.CalendarEvent, error) {
	if item.Start == nil {
		return models.CalendarEvent{}, fmt.Errorf("event has no start")
	}
	event := models.CalendarEvent{
		ID:              item.Id,
		Description:     item.Summary,
		BackgroundColor: overlayColor,
	}
	if item.Start.Date != "" {
		start, err := time.Parse(googleDateStamp, item.Start.Date)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		event.AllDay = true
		event.Start = models.NewLocalTime(start)
		return event, nil
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	event.Start = models.NewLocalTime(wallClock(start))
	if item.End != nil && item.End.DateTime != "" {
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		lt := models.NewLocalTime(wallClock(end))
		event.End = &lt
	}
	return event, nil
}

// wallClock drops the zone while keeping the local reading.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// GoogleLister lists events with a service account.
type GoogleLister struct {
	srv *gcal.Service
}

func NewGoogleLister(ctx context.Context, credentialsFile string) (*GoogleLister, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	srv, err := gcal.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar client: %w", err)
	}
	return &GoogleLister{srv: srv}, nil
}

func (g *GoogleLister) List(ctx context.Context, calendarID string, from time.Time) ([]*gcal.Event, error) {
	events, err := g.srv.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(maxResults).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

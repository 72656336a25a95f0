package cyu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pershin-daniil/icscal/pkg/models"
)

const (
	resType    = "104"
	dateLayout = "2006-01-02"
)

type View string

const (
	ViewDay   View = "agendaDay"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView accepts the names used in query strings.
func ParseView(s string) (View, error) {
	switch s {
	case "day":
		return ViewDay, nil
	case "week":
		return ViewWeek, nil
	case "month":
		return ViewMonth, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", s)
}

type ColorBy int

const (
	ColorByEventCategory ColorBy = 3
	ColorBySubject       ColorBy = 6
)

type Query struct {
	ID      string
	Session string
	Start   time.Time
	End     time.Time
	View    View
	ColorBy ColorBy
}

type RemoteEvent struct {
	ID              string            `json:"id"`
	Start           models.LocalTime  `json:"start"`
	End             *models.LocalTime `json:"end"`
	AllDay          bool              `json:"allDay"`
	RawDescription  string            `json:"description"`
	BackgroundColor string            `json:"backgroundColor"`
	Department      string            `json:"department"`
	Faculty         *string           `json:"faculty"`
	EventCategory   string            `json:"eventCategory"`
	Sites           []string          `json:"sites"`
	Modules         []string          `json:"modules"`
}

var lineBreaksRe = regexp.MustCompile(`(\r\n|<br />)+`)

// Description is the raw description with line breaks normalised and HTML
// entities decoded.
func (e RemoteEvent) Description() string {
	return html.UnescapeString(strings.TrimSpace(lineBreaksRe.ReplaceAllString(e.RawDescription, "\n")))
}

func (e RemoteEvent) ToCalendarEvent() models.CalendarEvent {
	return models.CalendarEvent{
		ID:              e.ID,
		Description:     e.Description(),
		Start:           e.Start,
		End:             e.End,
		AllDay:          e.AllDay,
		BackgroundColor: e.BackgroundColor,
		Category:        e.EventCategory,
	}
}

func (c *Client) Events(ctx context.Context, q Query) ([]RemoteEvent, error) {
	form := url.Values{
		"federationIds[]": []string{q.ID},
		"resType":         []string{resType},
		"start":           []string{q.Start.Format(dateLayout)},
		"end":             []string{q.End.Format(dateLayout)},
		"calView":         []string{string(q.View)},
		"colourScheme":    []string{strconv.Itoa(int(q.ColorBy))},
	}
	resp, err := c.postForm(ctx, "calendar_data", "/calendar/Home/GetCalendarData", q.Session, form)
	if err != nil {
		return nil, err
	}
	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}
	// An expired session gets an empty body instead of a status code.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrUnauthorized
	}
	var events []RemoteEvent
	if err = json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return events, nil
}

var limitsRe = regexp.MustCompile(`var dateExtents = \{\s*earliest: new Date\((\d+), (\d+) - 1, (\d+)\),\s*latest: new Date\((\d+), (\d+) - 1, (\d+)\)\s*\};`)

// Limits returns the first and last day the site has timetable data for.
func (c *Client) Limits(ctx context.Context, id, session string) (earliest, latest time.Time, err error) {
	query := url.Values{
		"CalendarViewType":          []string{"Month"},
		"EntityType":                []string{"Student"},
		"FederationIds":             []string{id},
		"CalendarViewStr":           []string{"month"},
		"EntityTypeAsIntegerString": []string{resType},
		"IsValid":                   []string{"True"},
		"NotAllowedToBrowse":        []string{"False"},
	}
	resp, err := c.get(ctx, "limits", "/calendar/?"+query.Encode(), session)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	page, err := c.readBody(resp)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	match := limitsRe.FindSubmatch(page)
	if match == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date extents not found", ErrRemote)
	}
	parts := make([]int, 6)
	for i := range parts {
		// \d+ guarantees a number; only overflow can fail here.
		if parts[i], err = strconv.Atoi(string(match[i+1])); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}
	}
	earliest = time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	latest = time.Date(parts[3], time.Month(parts[4]), parts[5], 0, 0, 0, 0, time.UTC)
	return earliest, latest, nil
}

// AllEvents fetches every event between the site's date extents.
func (c *Client) AllEvents(ctx context.Context, id, session string, colorBy ColorBy) ([]RemoteEvent, error) {
	earliest, latest, err := c.Limits(ctx, id, session)
	if err != nil {
		return nil, err
	}
	return c.Events(ctx, Query{
		ID:      id,
		Session: session,
		Start:   earliest,
		End:     latest,
		View:    ViewMonth,
		ColorBy: colorBy,
	})
}

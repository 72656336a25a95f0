package models

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeLayout is the wall-clock format used by the upstream calendar and
// by the calendar widget. Times carry no zone.
const LocalTimeLayout = "2006-01-02T15:04:05"

type LocalTime struct {
	time.Time
}

func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{Time: t}
}

func ParseLocalTime(s string) (LocalTime, error) {
	t, err := time.Parse(LocalTimeLayout, s)
	if err != nil {
		return LocalTime{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return LocalTime{Time: t}, nil
}

func (t LocalTime) String() string {
	return t.Format(LocalTimeLayout)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CalendarEvent is a timetable entry as served to the calendar page.
type CalendarEvent struct {
	ID              string     `json:"id"`
	Description     string     `json:"description"`
	Start           LocalTime  `json:"start"`
	End             *LocalTime `json:"end"`
	AllDay          bool       `json:"allDay"`
	BackgroundColor string     `json:"backgroundColor"`
	Category        string     `json:"eventCategory,omitempty"`
}

package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/pershin-daniil/icscal/pkg/models"
)

const (
	calendarName = "CYU Calendar"
	uidSuffix    = "@cyu-calendar"
)

// Generate builds the subscription feed. Timed events without an end are
// left out.
func Generate(events []models.CalendarEvent, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//icscal//CYU Calendar//EN")
	cal.SetXWRCalName(calendarName)
	for _, event := range events {
		if !event.AllDay && event.End == nil {
			continue
		}
		id := event.ID
		if id == "" {
			id = uuid.NewString()
		}
		vevent := cal.AddEvent(id + uidSuffix)
		vevent.SetDtStampTime(stamp)
		vevent.SetDescription(event.Description)
		vevent.SetSummary(Summary(event))
		if event.AllDay {
			vevent.SetAllDayStartAt(event.Start.Time)
			continue
		}
		vevent.SetStartAt(event.Start.Time)
		vevent.SetEndAt(event.End.Time)
	}
	return cal.Serialize()
}

// Summary is the event title shown in calendar apps. Lectures (CM) and
// tutorials (TD) are titled with their course, which the site puts third
// from the end of the description. Events without a category, such as
// overlay events, keep their description.
func Summary(event models.CalendarEvent) string {
	switch event.Category {
	case "CM", "TD":
		lines := strings.Split(event.Description, "\n")
		course := ""
		if len(lines) >= 3 {
			course = strings.ReplaceAll(lines[len(lines)-3], event.Category, "")
		}
		return event.Category + " " + course
	case "":
		return event.Description
	default:
		return event.Category
	}
}

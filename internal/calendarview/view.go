package calendarview

import (
	"errors"
	"fmt"

	"github.com/pershin-daniil/icscal/pkg/models"
)

// ContainerID is the element the widget mounts into.
const ContainerID = "calendar"

var ErrMissingEvents = errors.New("calendar events not provided")

// DisplayEvent is the widget's event record.
type DisplayEvent struct {
	Title           string            `json:"title"`
	Start           models.LocalTime  `json:"start"`
	End             *models.LocalTime `json:"end"`
	AllDay          bool              `json:"allDay"`
	BackgroundColor string            `json:"backgroundColor"`
}

type Toolbar struct {
	Left   string `json:"left"`
	Center string `json:"center"`
	Right  string `json:"right"`
}

type Options struct {
	InitialView   string         `json:"initialView"`
	HeaderToolbar Toolbar        `json:"headerToolbar"`
	Weekends      bool           `json:"weekends"`
	Height        string         `json:"height"`
	SlotMinTime   string         `json:"slotMinTime"`
	SlotMaxTime   string         `json:"slotMaxTime"`
	Events        []DisplayEvent `json:"events"`
}

// Renderer draws the calendar widget into the container with the given id.
type Renderer interface {
	Render(containerID string, opts Options) error
}

type View struct {
	events   []models.CalendarEvent
	renderer Renderer
}

// New fails with ErrMissingEvents when events is nil. An empty, non-nil slice
// renders an empty week.
func New(events []models.CalendarEvent, renderer Renderer) (*View, error) {
	if events == nil {
		return nil, ErrMissingEvents
	}
	if renderer == nil {
		return nil, fmt.Errorf("calendar renderer not provided")
	}
	return &View{
		events:   events,
		renderer: renderer,
	}, nil
}

func (v *View) DisplayEvents() []DisplayEvent {
	return ToDisplayEvents(v.events)
}

func (v *View) Options() Options {
	return Options{
		InitialView: "timeGridWeek",
		HeaderToolbar: Toolbar{
			Left:   "prev,next today",
			Center: "",
			Right:  "dayGridMonth,timeGridWeek",
		},
		Weekends:    false,
		Height:      "auto",
		SlotMinTime: "08:00:00",
		SlotMaxTime: "19:00:00",
		Events:      v.DisplayEvents(),
	}
}

func (v *View) Render() error {
	return v.renderer.Render(ContainerID, v.Options())
}

func ToDisplayEvents(events []models.CalendarEvent) []DisplayEvent {
	result := make([]DisplayEvent, 0, len(events))
	for _, event := range events {
		result = append(result, DisplayEvent{
			Title:           event.Description,
			Start:           event.Start,
			End:             event.End,
			AllDay:          event.AllDay,
			BackgroundColor: event.BackgroundColor,
		})
	}
	return result
}

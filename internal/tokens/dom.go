package tokens

import (
	"context"
	"sync"
)

type ClickHandler func(ctx context.Context) error

type SubmitHandler func(ctx context.Context, ev *SubmitEvent) error

// DeleteButton is a control bound to one issued token.
type DeleteButton interface {
	DataID() string
	OnClick(h ClickHandler)
}

type Form interface {
	OnSubmit(h SubmitHandler)
}

// Page is reloaded after a successful deletion so the server-rendered list
// reflects it.
type Page interface {
	Reload()
}

type Field struct {
	Name  string
	Value string
}

type SubmitEvent struct {
	fields    []Field
	prevented bool
}

func NewSubmitEvent(fields ...Field) *SubmitEvent {
	return &SubmitEvent{fields: fields}
}

func (e *SubmitEvent) PreventDefault() {
	e.prevented = true
}

func (e *SubmitEvent) DefaultPrevented() bool {
	return e.prevented
}

// Values flattens the fields in order; a later field overwrites an earlier
// one with the same name.
func (e *SubmitEvent) Values() map[string]string {
	values := make(map[string]string, len(e.fields))
	for _, f := range e.fields {
		values[f.Name] = f.Value
	}
	return values
}

// Button is an in-memory DeleteButton. Click dispatches to every handler
// registered so far.
type Button struct {
	id       string
	mu       sync.Mutex
	handlers []ClickHandler
}

func NewButton(id string) *Button {
	return &Button{id: id}
}

func (b *Button) DataID() string {
	return b.id
}

func (b *Button) OnClick(h ClickHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Button) Click(ctx context.Context) error {
	b.mu.Lock()
	handlers := append([]ClickHandler(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range handlers {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FormElement is an in-memory Form.
type FormElement struct {
	mu       sync.Mutex
	handlers []SubmitHandler
}

func NewForm() *FormElement {
	return &FormElement{}
}

func (f *FormElement) OnSubmit(h SubmitHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

func (f *FormElement) Submit(ctx context.Context, fields ...Field) (*SubmitEvent, error) {
	f.mu.Lock()
	handlers := append([]SubmitHandler(nil), f.handlers...)
	f.mu.Unlock()
	ev := NewSubmitEvent(fields...)
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			return ev, err
		}
	}
	return ev, nil
}

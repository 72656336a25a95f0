package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	tokenPath          = "/api/calendar/ics-token"
	createErrorMessage = "An error occurred while creating the token"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Manager drives the ics-token page: delete buttons, the create form and the
// alert banner.
type Manager struct {
	log     *logrus.Entry
	client  Doer
	baseURL string
	page    Page
	alert   *Alert
}

func New(log *logrus.Logger, client Doer, baseURL string, page Page, alert *Alert) *Manager {
	return &Manager{
		log:     log.WithField("component", "tokens"),
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		page:    page,
		alert:   alert,
	}
}

// Bind registers handlers on the buttons and form present now. Buttons
// created afterwards stay unbound.
func (m *Manager) Bind(buttons []DeleteButton, form Form) {
	for _, button := range buttons {
		id := button.DataID()
		button.OnClick(func(ctx context.Context) error {
			return m.DeleteToken(ctx, id)
		})
	}
	if form != nil {
		form.OnSubmit(m.CreateToken)
	}
}

// DeleteToken reloads the page when the server accepted the deletion. A
// rejected deletion changes nothing.
func (m *Manager) DeleteToken(ctx context.Context, id string) error {
	query := url.Values{"token_id": []string{id}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, m.baseURL+tokenPath+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("err building delete request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("err deleting token %s: %w", id, err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			m.log.Warnf("err during closing body: %v", err)
		}
	}()
	if !ok(resp.StatusCode) {
		m.log.Debugf("delete token %s rejected with status %d", id, resp.StatusCode)
		return nil
	}
	m.page.Reload()
	return nil
}

// CreateToken posts the form as JSON and shows the response body in the
// alert. On a rejected request the error banner is set first and then
// replaced by the response body in info mode.
func (m *Manager) CreateToken(ctx context.Context, ev *SubmitEvent) error {
	ev.PreventDefault()
	body, err := json.Marshal(ev.Values())
	if err != nil {
		return fmt.Errorf("err encoding form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("err building create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("err creating token: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			m.log.Warnf("err during closing body: %v", err)
		}
	}()
	if !ok(resp.StatusCode) {
		m.alert.Set(ModeError, createErrorMessage)
	}
	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("err reading token: %w", err)
	}
	m.alert.Set(ModeInfo, string(token))
	return nil
}

func ok(status int) bool {
	return status >= 200 && status <= 299
}

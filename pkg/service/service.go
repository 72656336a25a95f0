package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/icscal/internal/cyu"
	"github.com/pershin-daniil/icscal/internal/ics"
	"github.com/pershin-daniil/icscal/pkg/models"
)

type Notifier interface {
	Notify(ctx context.Context, message string, userID string) error
}

type Fetcher interface {
	Login(ctx context.Context, username, password string) (string, error)
	Infos(ctx context.Context, session string) (cyu.Infos, error)
	Events(ctx context.Context, q cyu.Query) ([]cyu.RemoteEvent, error)
	AllEvents(ctx context.Context, id, session string, colorBy cyu.ColorBy) ([]cyu.RemoteEvent, error)
}

type Store interface {
	CreateToken(ctx context.Context, userID, fingerprint string) (models.Token, error)
	ListTokens(ctx context.Context, userID string) ([]models.Token, error)
	DeleteToken(ctx context.Context, userID string, id int64) error
	TouchToken(ctx context.Context, fingerprint string, at time.Time) error
	DeleteIdleTokens(ctx context.Context, before time.Time) (int64, error)
}

type Encrypter interface {
	Encrypt(username, password string) (string, error)
	Decrypt(token string) (username, password string, err error)
}

// Overlay supplies events shared by every user.
type Overlay interface {
	Events(ctx context.Context, from time.Time) ([]models.CalendarEvent, error)
}

// Auth identifies a logged in user: their federation id and the upstream
// session cookie.
type Auth struct {
	UserID  string
	Session string
}

type CalendarService struct {
	log       *logrus.Entry
	fetcher   Fetcher
	store     Store
	encrypter Encrypter
	notifier  Notifier
	overlay   Overlay
	now       func() time.Time
}

func NewCalendarService(log *logrus.Logger, fetcher Fetcher, store Store, encrypter Encrypter, notifier Notifier) *CalendarService {
	s := CalendarService{
		log:       log.WithField("component", "service"),
		fetcher:   fetcher,
		store:     store,
		encrypter: encrypter,
		notifier:  notifier,
		now:       time.Now,
	}
	return &s
}

// WithOverlay merges the overlay's events into every timetable.
func (s *CalendarService) WithOverlay(overlay Overlay) *CalendarService {
	s.overlay = overlay
	return s
}

func (s *CalendarService) Login(ctx context.Context, username, password string) (Auth, models.Infos, error) {
	session, err := s.fetcher.Login(ctx, username, password)
	if err != nil {
		return Auth{}, models.Infos{}, fmt.Errorf("err logging in: %w", err)
	}
	infos, err := s.fetcher.Infos(ctx, session)
	if err != nil {
		return Auth{}, models.Infos{}, fmt.Errorf("err getting infos: %w", err)
	}
	return Auth{UserID: infos.FederationID, Session: session},
		models.Infos{ID: infos.FederationID, Name: infos.DisplayName}, nil
}

func (s *CalendarService) Infos(ctx context.Context, auth Auth) (models.Infos, error) {
	infos, err := s.fetcher.Infos(ctx, auth.Session)
	if err != nil {
		return models.Infos{}, fmt.Errorf("err getting infos: %w", err)
	}
	return models.Infos{ID: infos.FederationID, Name: infos.DisplayName}, nil
}

func (s *CalendarService) Events(ctx context.Context, auth Auth, start, end time.Time, view cyu.View) ([]models.CalendarEvent, error) {
	remote, err := s.fetcher.Events(ctx, cyu.Query{
		ID:      auth.UserID,
		Session: auth.Session,
		Start:   start,
		End:     end,
		View:    view,
		ColorBy: cyu.ColorByEventCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("err getting calendar: %w", err)
	}
	return toCalendarEvents(remote), nil
}

// AllEvents is the user's whole timetable plus the shared overlay. An
// overlay failure only loses the overlay.
func (s *CalendarService) AllEvents(ctx context.Context, auth Auth) ([]models.CalendarEvent, error) {
	remote, err := s.fetcher.AllEvents(ctx, auth.UserID, auth.Session, cyu.ColorByEventCategory)
	if err != nil {
		return nil, fmt.Errorf("err getting calendar: %w", err)
	}
	events := toCalendarEvents(remote)
	if s.overlay == nil {
		return events, nil
	}
	shared, err := s.overlay.Events(ctx, s.now().AddDate(0, -6, 0))
	if err != nil {
		s.log.Warnf("err during getting overlay events: %v", err)
		return events, nil
	}
	return append(events, shared...), nil
}

func toCalendarEvents(remote []cyu.RemoteEvent) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(remote))
	for _, e := range remote {
		events = append(events, e.ToCalendarEvent())
	}
	return events
}

// CreateToken seals the credentials into a feed token. Only its fingerprint
// is stored; the caller shows the full token once.
func (s *CalendarService) CreateToken(ctx context.Context, auth Auth, payload models.LoginPayload) (string, error) {
	token, err := s.encrypter.Encrypt(payload.Username, payload.Password)
	if err != nil {
		return "", fmt.Errorf("err encrypting credentials: %w", err)
	}
	if _, err = s.store.CreateToken(ctx, auth.UserID, fingerprint(token)); err != nil {
		return "", fmt.Errorf("err storing token: %w", err)
	}
	if err = s.notifier.Notify(ctx, "ics token created", auth.UserID); err != nil {
		s.log.Errorf("err notifying: %v", err)
	}
	return token, nil
}

func (s *CalendarService) ListTokens(ctx context.Context, auth Auth) ([]models.Token, error) {
	tokens, err := s.store.ListTokens(ctx, auth.UserID)
	if err != nil {
		return nil, fmt.Errorf("err listing tokens: %w", err)
	}
	return tokens, nil
}

func (s *CalendarService) DeleteToken(ctx context.Context, auth Auth, id int64) error {
	if err := s.store.DeleteToken(ctx, auth.UserID, id); err != nil {
		return fmt.Errorf("err deleting token %d: %w", id, err)
	}
	if err := s.notifier.Notify(ctx, fmt.Sprintf("ics token %d revoked", id), auth.UserID); err != nil {
		s.log.Errorf("err notifying: %v", err)
	}
	return nil
}

// Feed logs in with the credentials sealed in token and renders the ICS
// feed of the whole timetable.
func (s *CalendarService) Feed(ctx context.Context, token string) (string, error) {
	username, password, err := s.encrypter.Decrypt(token)
	if err != nil {
		return "", err
	}
	auth, _, err := s.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	events, err := s.AllEvents(ctx, auth)
	if err != nil {
		return "", err
	}
	now := s.now()
	if err = s.store.TouchToken(ctx, fingerprint(token), now); err != nil {
		s.log.Warnf("err during touching token: %v", err)
	}
	return ics.Generate(events, now), nil
}

func (s *CalendarService) SweepIdleTokens(ctx context.Context, maxIdle time.Duration) (int64, error) {
	n, err := s.store.DeleteIdleTokens(ctx, s.now().Add(-maxIdle))
	if err != nil {
		return 0, fmt.Errorf("err sweeping tokens: %w", err)
	}
	return n, nil
}

func fingerprint(token string) string {
	if len(token) <= models.TokenFingerprintLen {
		return token
	}
	return token[:models.TokenFingerprintLen]
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/pershin-daniil/icscal/internal/cyu"
	"github.com/pershin-daniil/icscal/pkg/crypt"
	"github.com/pershin-daniil/icscal/pkg/models"
	"github.com/pershin-daniil/icscal/pkg/pgstore"
	"github.com/pershin-daniil/icscal/pkg/service"
)

const queryDateLayout = "2006-01-02"

var (
	errInvalidCredentials = errors.New("Invalid credentials")
	errRemote             = errors.New("Failed to retrieve calendar from cyu")
	errInfos              = errors.New("Failed to retrieve informations")
	errMissingCredentials = errors.New("username and password are required")
)

type App interface {
	Login(ctx context.Context, username, password string) (service.Auth, models.Infos, error)
	Infos(ctx context.Context, auth service.Auth) (models.Infos, error)
	Events(ctx context.Context, auth service.Auth, start, end time.Time, view cyu.View) ([]models.CalendarEvent, error)
	AllEvents(ctx context.Context, auth service.Auth) ([]models.CalendarEvent, error)
	CreateToken(ctx context.Context, auth service.Auth, payload models.LoginPayload) (string, error)
	ListTokens(ctx context.Context, auth service.Auth) ([]models.Token, error)
	DeleteToken(ctx context.Context, auth service.Auth, id int64) error
	Feed(ctx context.Context, token string) (string, error)
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload models.LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	if err := requireCredentials(payload); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	auth, _, err := s.app.Login(ctx, payload.Username, payload.Password)
	switch {
	case errors.Is(err, cyu.ErrUnauthorized):
		s.writeResponse(w, http.StatusUnauthorized, errInvalidCredentials)
		return
	case err != nil:
		s.log.Warnf("err during login: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, errInfos)
		return
	}
	if err = s.issueSession(w, auth); err != nil {
		s.log.Warnf("err during issuing session: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(w, http.StatusOK, models.LoginResponse{Success: true})
}

func (s *Server) infosHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	infos, err := s.app.Infos(ctx, s.getAuth(ctx))
	if err != nil {
		s.log.Warnf("err during getting infos: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, errInfos)
		return
	}
	s.writeResponse(w, http.StatusOK, infos)
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	start, err := time.Parse(queryDateLayout, query.Get("start"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("invalid start: %w", err))
		return
	}
	end, err := time.Parse(queryDateLayout, query.Get("end"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("invalid end: %w", err))
		return
	}
	view, err := cyu.ParseView(query.Get("view"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.app.Events(ctx, s.getAuth(ctx), start, end, view)
	switch {
	case errors.Is(err, cyu.ErrUnauthorized):
		s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
		return
	case err != nil:
		s.log.Warnf("err during getting calendar: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, errRemote)
		return
	}
	s.writeResponse(w, http.StatusOK, events)
}

func (s *Server) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := decodeLoginPayload(r)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	token, err := s.app.CreateToken(ctx, s.getAuth(ctx), payload)
	if err != nil {
		s.log.Warnf("err during creating token: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.writeText(w, http.StatusOK, "text/plain; charset=utf-8", token)
}

func (s *Server) deleteTokenHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.URL.Query().Get("token_id"), 10, 64)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	err = s.app.DeleteToken(ctx, s.getAuth(ctx), id)
	switch {
	case errors.Is(err, pgstore.ErrTokenNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.log.Warnf("err during deleting token: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) icsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, err := s.app.Feed(ctx, r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, crypt.ErrInvalidToken), errors.Is(err, cyu.ErrUnauthorized):
		s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
		return
	case err != nil:
		s.log.Warnf("err during generating feed: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, errRemote)
		return
	}
	s.writeText(w, http.StatusOK, "text/calendar", feed)
}

// decodeLoginPayload accepts JSON (the default) and url-encoded forms.
func decodeLoginPayload(r *http.Request) (models.LoginPayload, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return models.LoginPayload{}, fmt.Errorf("invalid content type: %w", err)
	}
	var payload models.LoginPayload
	switch mediaType {
	case "application/json":
		if err = json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return models.LoginPayload{}, err
		}
	case "application/x-www-form-urlencoded":
		if err = r.ParseForm(); err != nil {
			return models.LoginPayload{}, err
		}
		payload.Username = r.PostForm.Get("username")
		payload.Password = r.PostForm.Get("password")
	default:
		return models.LoginPayload{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
	if err = requireCredentials(payload); err != nil {
		return models.LoginPayload{}, err
	}
	return payload, nil
}

func requireCredentials(payload models.LoginPayload) error {
	if payload.Username == "" || payload.Password == "" {
		return errMissingCredentials
	}
	return nil
}

func (s *Server) writeText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding response: %v", err)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

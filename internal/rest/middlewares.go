package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/pershin-daniil/icscal/pkg/metrics"
	"github.com/pershin-daniil/icscal/pkg/models"
	"github.com/pershin-daniil/icscal/pkg/service"
)

type ctxAuthType string

const (
	ctxAuthStr      ctxAuthType = "auth"
	sessionCookie               = "session"
	requestIDHeader             = "X-Request-Id"
)

var ErrUnauthorised = errors.New("unauthorized")

func (s *Server) issueSession(w http.ResponseWriter, auth service.Auth) error {
	now := s.now()
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   auth.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
		UserID:  auth.UserID,
		Session: auth.Session,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("err signing session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(s.sessionTTL),
	})
	return nil
}

func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// sessionFromRequest reads the session cookie, falling back to a bearer
// token for non-browser clients.
func (s *Server) sessionFromRequest(r *http.Request) (service.Auth, bool) {
	raw := ""
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		raw = cookie.Value
	} else if headerParts := strings.Split(r.Header.Get("Authorization"), " "); len(headerParts) == 2 && headerParts[0] == "Bearer" {
		raw = headerParts[1]
	}
	if raw == "" {
		return service.Auth{}, false
	}
	claims, err := parseToken(raw, s.secret)
	if err != nil {
		s.log.Debugf("rejected session: %v", err)
		return service.Auth{}, false
	}
	return service.Auth{UserID: claims.UserID, Session: claims.Session}, true
}

func parseToken(accessToken string, key []byte) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("err parsing token: %w", err)
	}
	claims, ok := token.Claims.(*models.Claims)
	if !ok || claims.UserID == "" {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

func (s *Server) apiAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := s.sessionFromRequest(r)
		if !ok {
			s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAuthStr, auth)))
	})
}

func (s *Server) uiAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := s.sessionFromRequest(r)
		if !ok {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAuthStr, auth)))
	})
}

// guestOnly sends logged in users on to where the login form would have.
func (s *Server) guestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionFromRequest(r); ok {
			http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getAuth(ctx context.Context) service.Auth {
	auth, _ := ctx.Value(ctxAuthStr).(service.Auth)
	return auth
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := r.URL.RequestURI()
	http.Redirect(w, r, "/login?redirect="+url.QueryEscape(target), http.StatusSeeOther)
}

// redirectTarget only allows local paths.
func redirectTarget(r *http.Request) string {
	target := r.URL.Query().Get("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		started := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.log.WithField("request_id", id).Debugf("%s %s in %s", r.Method, r.URL.Path, time.Since(started))
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

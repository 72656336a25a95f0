package rest

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/pershin-daniil/icscal/internal/calendarview"
	"github.com/pershin-daniil/icscal/internal/cyu"
	"github.com/pershin-daniil/icscal/pkg/models"
)

type homeData struct {
	Widget template.HTML
}

type linksData struct {
	Tokens []models.Token
}

type loginData struct {
	Redirect string
}

type errorData struct {
	Message string
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.app.AllEvents(ctx, s.getAuth(ctx))
	switch {
	case errors.Is(err, cyu.ErrUnauthorized):
		clearSession(w)
		redirectToLogin(w, r)
		return
	case err != nil:
		s.log.Warnf("err during getting calendar: %v", err)
		s.renderError(w, http.StatusInternalServerError, errRemote.Error())
		return
	}
	var widget bytes.Buffer
	view, err := calendarview.New(events, calendarview.NewHTMLRenderer(&widget))
	if err != nil {
		s.log.Warnf("err during creating calendar view: %v", err)
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err = view.Render(); err != nil {
		s.log.Warnf("err during rendering calendar: %v", err)
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.renderPage(w, http.StatusOK, "home.html", homeData{Widget: template.HTML(widget.String())})
}

func (s *Server) linksHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, err := s.app.ListTokens(ctx, s.getAuth(ctx))
	if err != nil {
		s.log.Warnf("err during listing tokens: %v", err)
	}
	s.renderPage(w, http.StatusOK, "links.html", linksData{Tokens: tokens})
}

func (s *Server) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, "login.html", loginData{Redirect: r.URL.Query().Get("redirect")})
}

func (s *Server) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}
	auth, _, err := s.app.Login(ctx, r.PostForm.Get("username"), r.PostForm.Get("password"))
	switch {
	case errors.Is(err, cyu.ErrUnauthorized):
		s.renderError(w, http.StatusUnauthorized, errInvalidCredentials.Error())
		return
	case err != nil:
		s.log.Warnf("err during login: %v", err)
		s.renderError(w, http.StatusInternalServerError, "Failed to login to cyu")
		return
	}
	if err = s.issueSession(w, auth); err != nil {
		s.log.Warnf("err during issuing session: %v", err)
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.renderPage(w, status, "error.html", errorData{Message: message})
}

// renderPage renders into a buffer first so a template failure still yields
// a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Warnf("err during rendering %s: %v", name, err)
		http.Error(w, "Failed to render template '"+name+"'", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

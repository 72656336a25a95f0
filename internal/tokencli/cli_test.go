package tokencli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/icscal/pkg/logger"
	"github.com/pershin-daniil/icscal/pkg/models"
)

const goodSession = "sess-123"

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var payload models.LoginPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: goodSession})
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer "+goodSession {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Post("/api/calendar/ics-token", func(w http.ResponseWriter, r *http.Request) {
			var payload models.LoginPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_, _ = w.Write([]byte("token-for-" + payload.Username))
		})
		r.Delete("/api/calendar/ics-token", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("token_id") != "7" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(sessionEnv, "")
	var out bytes.Buffer
	cmd := NewRootCmd(logger.New(), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginPrintsSession(t *testing.T) {
	srv := fakeServer(t)

	out, err := run(t, "login", "--server", srv.URL, "-u", "jdoe", "-p", "pw")
	require.NoError(t, err)
	require.Equal(t, goodSession+"\n", out)

	_, err = run(t, "login", "--server", srv.URL, "-u", "jdoe", "-p", "bad")
	require.ErrorContains(t, err, "status 401")
}

func TestCreatePrintsAlert(t *testing.T) {
	srv := fakeServer(t)

	out, err := run(t, "create", "--server", srv.URL, "--session", goodSession, "-u", "jdoe", "-p", "pw")
	require.NoError(t, err)
	require.Equal(t, "[info] token-for-jdoe\n", out)
}

func TestCreateRejectedEndsInInfoMode(t *testing.T) {
	srv := fakeServer(t)

	out, err := run(t, "create", "--server", srv.URL, "--session", "stale", "-u", "jdoe", "-p", "pw")
	require.NoError(t, err)
	require.Equal(t, "[info] {\"error\":\"unauthorized\"}\n", out)
}

func TestDeleteReloadsOnlyOnSuccess(t *testing.T) {
	srv := fakeServer(t)

	out, err := run(t, "delete", "--server", srv.URL, "--session", goodSession, "7", "8")
	require.NoError(t, err)
	require.Equal(t, "token deleted\n", out)
}

func TestMissingSession(t *testing.T) {
	srv := fakeServer(t)

	_, err := run(t, "delete", "--server", srv.URL, "7")
	require.ErrorContains(t, err, "no session")
}

func TestDeleteRequiresID(t *testing.T) {
	_, err := run(t, "delete", "--session", goodSession)
	require.Error(t, err)
}

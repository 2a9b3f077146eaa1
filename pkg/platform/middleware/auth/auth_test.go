package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tradevault/pkg/domain"
	"tradevault/pkg/requestcontext"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s *stubValidator) ValidateToken(string) (*Claims, error) {
	return s.claims, s.err
}

func okHandler(captured *id.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := requestcontext.Actor(r.Context()); ok {
			*captured = actor
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	logger := slog.Default()
	userID := uuid.NewString()

	t.Run("valid token populates actor", func(t *testing.T) {
		validator := &stubValidator{claims: &Claims{UserID: userID, Role: "bank", Org: "first-trade-bank"}}
		var actor id.Actor

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		RequireAuth(validator, logger)(okHandler(&actor)).ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID, actor.UserID.String())
		assert.Equal(t, id.RoleBank, actor.Role)
		assert.Equal(t, "first-trade-bank", actor.Org)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		validator := &stubValidator{claims: &Claims{UserID: userID, Role: "bank", Org: "x"}}
		var actor id.Actor

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		RequireAuth(validator, logger)(okHandler(&actor)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("validator error rejected", func(t *testing.T) {
		validator := &stubValidator{err: errors.New("expired")}
		var actor id.Actor

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer stale-token")
		w := httptest.NewRecorder()
		RequireAuth(validator, logger)(okHandler(&actor)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		validator := &stubValidator{claims: &Claims{UserID: userID, Role: "superuser", Org: "x"}}
		var actor id.Actor

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		RequireAuth(validator, logger)(okHandler(&actor)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.Default()
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	actorCtx := func(role id.Role) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		actor := id.Actor{UserID: id.UserID(uuid.New()), Role: role, Org: "acme-exports"}
		return r.WithContext(requestcontext.WithActor(r.Context(), actor))
	}

	t.Run("allowed role passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireRole(logger, id.RoleAdmin, id.RoleAuditor)(next).ServeHTTP(w, actorCtx(id.RoleAuditor))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("disallowed role forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireRole(logger, id.RoleAdmin, id.RoleAuditor)(next).ServeHTTP(w, actorCtx(id.RoleCorporate))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no actor unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		RequireRole(logger, id.RoleAdmin)(next).ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

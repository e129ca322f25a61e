package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/contextkeys"
	"github.com/tillstack/tillstack/pkg/guard"
)

func newIntrospectionRouter(t *testing.T) *mux.Router {
	t.Helper()
	registry, err := authz.NewRegistry(nil)
	require.NoError(t, err)
	engine := authz.NewEngine(registry)

	router := mux.NewRouter()
	NewIntrospectionHandlers(engine, guard.New(engine, nil, nil)).RegisterRoutes(router)
	return router
}

func serveAs(router *mux.Router, principal *authz.Principal, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if principal != nil {
		r = r.WithContext(contextkeys.WithPrincipal(r.Context(), principal))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestGetPrincipal(t *testing.T) {
	router := newIntrospectionRouter(t)

	t.Run("returns effective permissions", func(t *testing.T) {
		p := &authz.Principal{ID: 7, Username: "dewi", Roles: []authz.Role{authz.RoleStaff, authz.RoleCashier}}
		w := serveAs(router, p, "/api/authz/principal")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success bool `json:"success"`
			Data    struct {
				Permissions []string `json:"permissions"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Contains(t, body.Data.Permissions, "PRODUCTS_READ")
		assert.Contains(t, body.Data.Permissions, "TRANSACTIONS_WRITE")
		assert.NotContains(t, body.Data.Permissions, "SYSTEM_ADMIN")
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		w := serveAs(router, nil, "/api/authz/principal")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetRole(t *testing.T) {
	router := newIntrospectionRouter(t)
	manager := &authz.Principal{ID: 2, Username: "sari", Roles: []authz.Role{authz.RoleManager}}

	t.Run("manager reads a role", func(t *testing.T) {
		w := serveAs(router, manager, "/api/authz/roles/CASHIER")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Role        string   `json:"role"`
				Level       *int     `json:"level"`
				Permissions []string `json:"permissions"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "CASHIER", body.Data.Role)
		require.NotNil(t, body.Data.Level)
		assert.Equal(t, 4, *body.Data.Level)
		assert.Contains(t, body.Data.Permissions, "TRANSACTIONS_WRITE")
	})

	t.Run("staff forbidden", func(t *testing.T) {
		p := &authz.Principal{ID: 7, Roles: []authz.Role{authz.RoleStaff}}
		w := serveAs(router, p, "/api/authz/roles/CASHIER")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		w := serveAs(router, nil, "/api/authz/roles/CASHIER")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role is 404", func(t *testing.T) {
		w := serveAs(router, manager, "/api/authz/roles/JANITOR")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

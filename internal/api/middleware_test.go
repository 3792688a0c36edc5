package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[int64]*models.User), nextID: 1}
}

func (m *mockUserStore) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicateEmail
		}
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService, *mockUserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMockUserStore()
	auth := service.NewAuthService(users, "test-secret", time.Hour)
	h := &Handler{auth: auth}

	router := gin.New()
	authed := router.Group("", h.Authenticate())
	authed.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c)})
	})
	authed.GET("/admin-only", AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, auth, users
}

func registerAndLogin(t *testing.T, auth *service.AuthService, email, role string) (*models.User, string) {
	t.Helper()
	resp, err := auth.Register(context.Background(), &service.RegisterRequest{
		Name: "Tester", Email: email, Password: "secret1", Role: role,
	})
	require.NoError(t, err)
	return resp.User, resp.Token
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_MissingToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no token")
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no token")
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/whoami", "not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthenticate_ValidToken(t *testing.T) {
	router, auth, _ := newTestRouter(t)
	user, token := registerAndLogin(t, auth, "alice@example.com", models.RoleCustomer)

	rec := doRequest(router, http.MethodGet, "/whoami", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.Email)
	assert.NotContains(t, rec.Body.String(), "password", "hashes must never serialize")
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	router, auth, users := newTestRouter(t)
	user, token := registerAndLogin(t, auth, "gone@example.com", models.RoleCustomer)

	delete(users.users, user.ID)

	rec := doRequest(router, http.MethodGet, "/whoami", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRequired_CustomerForbidden(t *testing.T) {
	router, auth, _ := newTestRouter(t)
	_, token := registerAndLogin(t, auth, "bob@example.com", models.RoleCustomer)

	rec := doRequest(router, http.MethodGet, "/admin-only", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestAdminRequired_AdminAllowed(t *testing.T) {
	router, auth, _ := newTestRouter(t)
	_, token := registerAndLogin(t, auth, "root@example.com", models.RoleAdmin)

	rec := doRequest(router, http.MethodGet, "/admin-only", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// A demoted admin loses privileged access on their very next request,
// even while holding a token issued before the demotion.
func TestAdminRequired_StaleRoleDemotion(t *testing.T) {
	router, auth, users := newTestRouter(t)
	user, token := registerAndLogin(t, auth, "demoted@example.com", models.RoleAdmin)

	rec := doRequest(router, http.MethodGet, "/admin-only", token)
	require.Equal(t, http.StatusOK, rec.Code)

	users.users[user.ID].Role = models.RoleCustomer

	rec = doRequest(router, http.MethodGet, "/admin-only", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentUser_OutsideAuthenticatedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
}

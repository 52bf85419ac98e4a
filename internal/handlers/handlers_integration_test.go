package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gymflow/internal/handlers"
	"gymflow/internal/middleware"
	"gymflow/internal/models"
	"gymflow/internal/repositories"
	"gymflow/internal/services"
	"gymflow/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter int64

// testEnv bundles the Fiber app with the stores the tests inspect.
type testEnv struct {
	app      *fiber.App
	userRepo repositories.UserRepository
}

// setupApp sets up a Fiber app for testing with in-memory SQLite, an
// in-memory session store and all handlers/services wired the same way
// main.go wires them.
func setupApp() (*testEnv, error) {
	// Configure Viper for testing
	viper.SetDefault("SESSION_SECRET", "test_session_secret")
	viper.AutomaticEnv()
	sessionSecret := viper.GetString("SESSION_SECRET")

	// Each setup gets its own named shared-cache database so tests stay
	// independent while the connection pool still sees one database.
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Profile{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	mediaDir, err := os.MkdirTemp("", "gymflow-media-")
	if err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	pictureStore, err := storage.NewDiskPictureStore(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create picture store: %w", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	sessionStore := repositories.NewMemorySessionStore()

	authService := services.NewAuthService(userRepo, sessionStore, nil, sessionSecret, time.Hour)
	profileService := services.NewProfileService(userRepo, pictureStore, nil)

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService)

	app := fiber.New()

	// Public authentication routes first.
	authHandler.RegisterRoutes(app)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"app": "gymflow"})
	})

	// Profile routes behind the session check.
	protectedRoutes := app.Group("", middleware.SessionRequired(authService))
	profileHandler.RegisterRoutes(protectedRoutes)

	return &testEnv{app: app, userRepo: userRepo}, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// postForm submits an urlencoded form, optionally with a session cookie.
func postForm(t *testing.T, app *fiber.App, path string, form url.Values, sessionToken string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionToken})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// sessionCookie pulls the session cookie value out of a response, or ""
// when none was set.
func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

// register creates an account through the HTTP surface and returns the
// session token and user ID.
func register(t *testing.T, env *testEnv, email string) (token, userID string) {
	t.Helper()

	resp := postForm(t, env.app, "/register", url.Values{
		"email":     {email},
		"password1": {"Xx!23456"},
		"password2": {"Xx!23456"},
	}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	token = sessionCookie(resp)
	require.NotEmpty(t, token)

	user, err := env.userRepo.GetByEmail(email)
	require.NoError(t, err)
	return token, user.ID
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegisterSuccess(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	resp := postForm(t, env.app, "/register", url.Values{
		"email":     {"a@b.com"},
		"password1": {"Xx!23456"},
		"password2": {"Xx!23456"},
	}, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.NotEmpty(t, sessionCookie(resp), "registration must establish a session")

	// Exactly one user with exactly one profile, all optional fields empty.
	user, err := env.userRepo.GetByEmail("a@b.com")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)

	profile, err := env.userRepo.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Username)
	assert.Empty(t, profile.FirstName)
	assert.Empty(t, profile.LastName)
	assert.Nil(t, profile.DateOfBirth)
	assert.Empty(t, profile.ProfilePicture)
	assert.False(t, profile.DateJoined.IsZero())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	resp := postForm(t, env.app, "/register", url.Values{
		"email":     {"mismatch@example.com"},
		"password1": {"Xx!23456"},
		"password2": {"Yy!23456"},
	}, "")
	defer resp.Body.Close()

	// The form comes back, not a redirect.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, sessionCookie(resp))

	body := decodeBody(t, resp)
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "The two password fields didn't match.", errs["password2"])

	// No user row was created.
	_, err = env.userRepo.GetByEmail("mismatch@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	register(t, env, "dup@example.com")

	resp := postForm(t, env.app, "/register", url.Values{
		"email":     {"dup@example.com"},
		"password1": {"Xx!23456"},
		"password2": {"Xx!23456"},
	}, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs["email"], "already exists")
}

func TestLogin(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	register(t, env, "login@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		resp := postForm(t, env.app, "/login", url.Values{
			"username": {"login@example.com"},
			"password": {"Xx!23456"},
		}, "")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.NotEmpty(t, sessionCookie(resp))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := postForm(t, env.app, "/login", url.Values{
			"username": {"login@example.com"},
			"password": {"wrongpassword"},
		}, "")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, sessionCookie(resp), "failed login must not establish a session")

		// The submitted identifier is echoed back into the form.
		body := decodeBody(t, resp)
		values := body["values"].(map[string]interface{})
		assert.Equal(t, "login@example.com", values["username"])
		errs := body["errors"].(map[string]interface{})
		assert.Contains(t, errs["__all__"], "correct email and password")
	})

	t.Run("unknown email gets the same generic message", func(t *testing.T) {
		resp := postForm(t, env.app, "/login", url.Values{
			"username": {"ghost@example.com"},
			"password": {"Xx!23456"},
		}, "")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		errs := body["errors"].(map[string]interface{})
		assert.Contains(t, errs["__all__"], "correct email and password")
	})
}

func TestLogoutIdempotent(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	token, userID := register(t, env, "logout@example.com")

	// First logout clears the session.
	resp := postForm(t, env.app, "/logout", nil, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	// The session really is gone: the protected route now rejects it.
	req := httptest.NewRequest(http.MethodGet, "/profile/"+userID, nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	detailResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	detailResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, detailResp.StatusCode)

	// A second logout with the dead token still redirects cleanly.
	resp = postForm(t, env.app, "/logout", nil, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	// As does a logout with no session at all.
	resp = postForm(t, env.app, "/logout", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestProfileRequiresSession(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	_, userID := register(t, env, "guarded@example.com")

	req := httptest.NewRequest(http.MethodGet, "/profile/"+userID, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	postResp := postForm(t, env.app, "/profile/"+userID, url.Values{"first_name": {"John"}}, "")
	postResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, postResp.StatusCode)
}

func TestProfileEditOwnerPartial(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	token, userID := register(t, env, "owner@example.com")

	// Fill the profile first.
	resp := postForm(t, env.app, "/profile/"+userID, url.Values{
		"username":      {"flexer"},
		"last_name":     {"Doe"},
		"date_of_birth": {"1990-06-15"},
	}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/"+userID, resp.Header.Get("Location"))

	// Now submit only first_name; everything else must stay put.
	resp = postForm(t, env.app, "/profile/"+userID, url.Values{
		"first_name": {"John"},
	}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	profile, err := env.userRepo.GetProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, "John", profile.FirstName)
	assert.Equal(t, "flexer", profile.Username)
	assert.Equal(t, "Doe", profile.LastName)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, "1990-06-15", profile.DateOfBirth.Format("2006-01-02"))
}

func TestProfileEditNonOwner(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	_, ownerID := register(t, env, "victim@example.com")
	intruderToken, _ := register(t, env, "intruder@example.com")

	resp := postForm(t, env.app, "/profile/"+ownerID, url.Values{
		"first_name": {"Hacked"},
	}, intruderToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	profile, err := env.userRepo.GetProfile(ownerID)
	require.NoError(t, err)
	assert.Empty(t, profile.FirstName, "non-owner edit must not mutate anything")
}

func TestProfileEditValidationFailure(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	token, userID := register(t, env, "invalid@example.com")

	resp := postForm(t, env.app, "/profile/"+userID, url.Values{
		"first_name":    {"John"},
		"date_of_birth": {"15/06/1990"},
	}, token)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs["date_of_birth"], "YYYY-MM-DD")

	// All-or-nothing: the valid field did not land either.
	profile, err := env.userRepo.GetProfile(userID)
	require.NoError(t, err)
	assert.Empty(t, profile.FirstName)
}

func TestProfileDetail(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	token, userID := register(t, env, "detail@example.com")
	viewerToken, _ := register(t, env, "viewer@example.com")

	resp := postForm(t, env.app, "/profile/"+userID, url.Values{
		"username": {"flexer"},
	}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	// Any authenticated viewer may read any profile.
	req := httptest.NewRequest(http.MethodGet, "/profile/"+userID, nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: viewerToken})
	detailResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer detailResp.Body.Close()
	require.Equal(t, http.StatusOK, detailResp.StatusCode)

	body := decodeBody(t, detailResp)
	assert.Equal(t, "detail@example.com", body["email"])
	profile := body["profile"].(map[string]interface{})
	assert.Equal(t, "flexer", profile["username"])

	// Unknown IDs are a 404.
	req = httptest.NewRequest(http.MethodGet, "/profile/no-such-user", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: viewerToken})
	missingResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	missingResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestProfilePictureUpload(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	token, userID := register(t, env, "picture@example.com")

	// Multipart edit with a picture and a text field.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("profile_picture", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-png-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("first_name", "John"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/"+userID, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	profile, err := env.userRepo.GetProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, "John", profile.FirstName)
	assert.True(t, strings.HasPrefix(profile.ProfilePicture, "profile_pictures/"))
	assert.True(t, strings.HasSuffix(profile.ProfilePicture, ".png"))
	storedPath := profile.ProfilePicture

	// An edit without a file leaves the stored picture untouched.
	textResp := postForm(t, env.app, "/profile/"+userID, url.Values{
		"last_name": {"Doe"},
	}, token)
	textResp.Body.Close()
	require.Equal(t, http.StatusFound, textResp.StatusCode)

	profile, err = env.userRepo.GetProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, storedPath, profile.ProfilePicture)
	assert.Equal(t, "Doe", profile.LastName)
}

func TestRegisterFormGet(t *testing.T) {
	env, err := setupApp()
	require.NoError(t, err)

	for _, path := range []string{"/register", "/login"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

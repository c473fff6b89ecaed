package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api"
	"github.com/arsenmarkotskyi/tt-event-management/internal/config"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
	"github.com/arsenmarkotskyi/tt-event-management/internal/storage/postgres"
)

type testEnv struct {
	Context context.Context
	Pool    *pgxpool.Pool
	Server  *httptest.Server
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ttevents"),
		tcpostgres.WithUsername("ttevents"),
		tcpostgres.WithPassword("ttevents_test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot(t), "internal", "storage", "postgres", "migrations")
	require.NoError(t, migrateWithRetry(dbURL, migrationsPath, 10*time.Second))

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo, err := postgres.NewRepository(pool)
	require.NoError(t, err)

	logger := testLogger()
	accountsService := accounts.NewService(repo.Users(), logger)
	eventsService := events.NewService(repo.Events(), logger)
	registrationsService := registrations.NewService(repo.Registrations(), nil, false, logger)

	server := httptest.NewServer(api.NewRouter(api.Dependencies{
		Config:        testConfig(dbURL),
		Logger:        logger,
		Pool:          pool,
		Accounts:      accountsService,
		Events:        eventsService,
		Registrations: registrationsService,
	}))
	t.Cleanup(server.Close)

	return &testEnv{
		Context: ctx,
		Pool:    pool,
		Server:  server,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Host:    "127.0.0.1",
			Port:    0,
			BaseURL: "http://localhost",
		},
		Database: config.DatabaseConfig{
			URL:            dbURL,
			MaxConnections: 5,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "json",
		},
		Email: config.EmailConfig{
			Enabled:  false,
			Provider: config.EmailProviderSMTP,
			From:     "noreply@localhost",
		},
		RateLimit: config.RateLimitConfig{
			PublicPerMinute:   0,
			AuthPerMinute:     0,
			LoginPer15Minutes: 0,
		},
		Environment: "test",
	}
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func migrateWithRetry(databaseURL string, migrationsPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := postgres.MigrateUp(databaseURL, migrationsPath); err != nil {
			if time.Now().After(deadline) {
				return err
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}
		return nil
	}
}

// do issues a request against the test server. token may be empty for
// anonymous requests.
func (env *testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(env.Context, method, env.Server.URL+path, reader)
	require.NoError(t, err)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := env.Server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type userPayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type eventPayload struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            time.Time   `json:"date"`
	Location        string      `json:"location"`
	Organizer       userPayload `json:"organizer"`
	MaxParticipants *int        `json:"max_participants"`
	RegisteredCount int64       `json:"registered_count"`
	IsRegistered    bool        `json:"is_registered"`
	IsFull          bool        `json:"is_full"`
	IsPast          bool        `json:"is_past"`
}

type problemPayload struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Errors map[string]any `json:"errors"`
}

func registerUser(t *testing.T, env *testEnv, username string) authPayload {
	t.Helper()

	body := fmt.Sprintf(
		`{"username":%q,"email":%q,"password":"sup3rsecret","password_confirm":"sup3rsecret","first_name":"Test","last_name":"User"}`,
		username, username+"@example.com",
	)
	resp := env.do(t, http.MethodPost, "/accounts/register/", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload authPayload
	decodeBody(t, resp, &payload)
	require.NotEmpty(t, payload.Token)
	return payload
}

func createEvent(t *testing.T, env *testEnv, token, title string, date time.Time, maxParticipants *int) eventPayload {
	t.Helper()

	body := fmt.Sprintf(`{"title":%q,"description":"An event.","date":%q,"location":"Main Hall"`,
		title, date.Format(time.RFC3339))
	if maxParticipants != nil {
		body += fmt.Sprintf(`,"max_participants":%d`, *maxParticipants)
	}
	body += "}"

	resp := env.do(t, http.MethodPost, "/events/", token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload eventPayload
	decodeBody(t, resp, &payload)
	require.NotEmpty(t, payload.ID)
	return payload
}

func intPtr(v int) *int {
	return &v
}

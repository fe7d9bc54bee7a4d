package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
)

// PostgresImage is the image used for integration tests.
const PostgresImage = "postgres:16-alpine"

// appRole is a non-superuser login used by the pool so row-level security
// applies; superusers bypass every policy.
const (
	appRole     = "notebook_app"
	appPassword = "app_password"
)

// TestDB holds the shared test database: a container with migrations applied,
// and a pool connected as the unprivileged application role.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	// AdminConnStr connects as the superuser that owns the schema.
	AdminConnStr string
	ConnStr      string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "ekaya_notebook_test",
			"POSTGRES_USER":     "notebook",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The entrypoint restarts postgres once after init.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	adminConnStr := fmt.Sprintf("postgres://notebook:test_password@%s:%s/ekaya_notebook_test?sslmode=disable",
		host, port.Port())

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", adminConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	grants := []string{
		fmt.Sprintf(`CREATE ROLE %s LOGIN PASSWORD '%s'`, appRole, appPassword),
		fmt.Sprintf(`GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %s`, appRole),
	}
	for _, stmt := range grants {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to prepare application role: %w", err)
		}
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/ekaya_notebook_test?sslmode=disable",
		appRole, appPassword, host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notebook database: %w", err)
	}

	return &TestDB{
		Container:    container,
		DB:           db,
		AdminConnStr: adminConnStr,
		ConnStr:      connStr,
	}, nil
}

// UserContext returns a context scoped to userID for RLS. The cleanup
// function releases the connection.
func (tdb *TestDB) UserContext(t *testing.T, userID uuid.UUID) (context.Context, func()) {
	t.Helper()
	ctx, cleanup, err := database.NewScopeProvider(tdb.DB).WithUserScope(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to create user scope: %v", err)
	}
	return ctx, cleanup
}

// AnonymousContext returns a context with an unrestricted scope, as used by
// signup and login.
func (tdb *TestDB) AnonymousContext(t *testing.T) (context.Context, func()) {
	t.Helper()
	ctx, cleanup, err := database.NewScopeProvider(tdb.DB).WithoutUserScope(context.Background())
	if err != nil {
		t.Fatalf("failed to create scope: %v", err)
	}
	return ctx, cleanup
}

// CreateAccount inserts an account with a unique email and returns its id.
// Projects, profiles and roles cascade when the account is deleted at cleanup.
func (tdb *TestDB) CreateAccount(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var id uuid.UUID
	email := fmt.Sprintf("test-%s@example.org", uuid.NewString())
	err := tdb.DB.QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash) VALUES ($1, 'x') RETURNING id`, email,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	t.Cleanup(func() {
		_, _ = tdb.DB.Exec(context.Background(), `DELETE FROM accounts WHERE id = $1`, id)
	})
	return id
}

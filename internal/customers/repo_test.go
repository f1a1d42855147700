package customers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/launchforge/launchforge-backend/pkg/db/models"
	"github.com/launchforge/launchforge-backend/pkg/errors"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a single connection keeps every caller on the same in-memory
	// database and serializes writers, so constraint violations surface
	// instead of SQLITE_BUSY
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  tenant_name TEXT NOT NULL DEFAULT '',
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func TestRepositoryFindByTenantAbsentReturnsNil(t *testing.T) {
	repo := NewRepository(setupCustomersTestDB(t))

	customer, err := repo.FindByTenant(context.Background(), "tenant-missing")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	repo := NewRepository(setupCustomersTestDB(t))
	ctx := context.Background()

	record := &models.Customer{
		ID:         "cus_123",
		TenantID:   "tenant-1",
		Email:      "owner@example.com",
		TenantName: "Acme",
	}
	require.NoError(t, repo.Create(ctx, record))

	byTenant, err := repo.FindByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, byTenant)
	assert.Equal(t, "cus_123", byTenant.ID)
	assert.Equal(t, "owner@example.com", byTenant.Email)

	byID, err := repo.FindByID(ctx, "cus_123")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "tenant-1", byID.TenantID)
}

func TestRepositoryCreateDuplicateTenantConflicts(t *testing.T) {
	repo := NewRepository(setupCustomersTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Customer{
		ID:       "cus_a",
		TenantID: "tenant-1",
		Email:    "a@example.com",
	}))

	err := repo.Create(ctx, &models.Customer{
		ID:       "cus_b",
		TenantID: "tenant-1",
		Email:    "b@example.com",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	// losing writer re-reads and finds the winner
	winner, err := repo.FindByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "cus_a", winner.ID)
}

func TestRepositoryConcurrentCreatesYieldSingleRecord(t *testing.T) {
	conn := setupCustomersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	const writers = 8
	results := make(chan error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- repo.Create(ctx, &models.Customer{
				ID:       fmt.Sprintf("cus_%d", n),
				TenantID: "tenant-1",
				Email:    fmt.Sprintf("writer%d@example.com", n),
			})
		}(i)
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.IsCode(err, errors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)

	var count int64
	require.NoError(t, conn.Model(&models.Customer{}).Where("tenant_id = ?", "tenant-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	winner, err := repo.FindByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, winner)
}

func TestRepositoryUpdateEmail(t *testing.T) {
	repo := NewRepository(setupCustomersTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Customer{
		ID:       "cus_123",
		TenantID: "tenant-1",
		Email:    "old@example.com",
	}))

	require.NoError(t, repo.UpdateEmail(ctx, "cus_123", "new@example.com"))

	updated, err := repo.FindByID(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)

	err = repo.UpdateEmail(ctx, "cus_unknown", "x@example.com")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

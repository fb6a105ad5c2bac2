package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chatscope_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return database
}

func TestSaveAndGetResult(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	title := "flatmates"
	saved := &AnalysisResult{
		ID:           uuid.New().String(),
		Platform:     "whatsapp",
		Title:        &title,
		Result:       json.RawMessage(`{"verdict":"mostly memes"}`),
		InputTokens:  12000,
		OutputTokens: 3400,
		CostUSD:      decimal.RequireFromString("0.087"),
	}
	if err := database.SaveResult(ctx, saved); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := database.GetResult(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Platform != "whatsapp" {
		t.Errorf("platform = %q", got.Platform)
	}
	if got.Title == nil || *got.Title != title {
		t.Errorf("title = %v", got.Title)
	}
	if string(got.Result) != `{"verdict": "mostly memes"}` && string(got.Result) != `{"verdict":"mostly memes"}` {
		t.Errorf("result = %s", got.Result)
	}
	if got.InputTokens != 12000 || got.OutputTokens != 3400 {
		t.Errorf("tokens = %d/%d", got.InputTokens, got.OutputTokens)
	}
	if !got.CostUSD.Equal(decimal.RequireFromString("0.087")) {
		t.Errorf("cost = %s", got.CostUSD)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestGetResultNotFound(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	if _, err := database.GetResult(ctx, uuid.New().String()); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("unknown id err = %v, want ErrResultNotFound", err)
	}

	// A malformed UUID must read as not-found, not as a query failure.
	if _, err := database.GetResult(ctx, "not-a-uuid"); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("malformed id err = %v, want ErrResultNotFound", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	database := setupTestDB(t)
	if err := database.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

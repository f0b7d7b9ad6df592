package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/platform/database/databasetest"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, account.NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	db := databasetest.New(t)
	store, err := account.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	runStoreContract(t, store)
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := account.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func runStoreContract(t *testing.T, store account.Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	u := account.User{
		ID:           uuid.NewString(),
		Email:        "b@example.com",
		DisplayName:  "বিথী",
		PasswordHash: "hash",
		Language:     "bn",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dup := u
	dup.ID = uuid.NewString()
	if err := store.Create(ctx, dup); !errors.Is(err, account.ErrEmailTaken) {
		t.Errorf("Create() duplicate email error = %v, want ErrEmailTaken", err)
	}

	got, err := store.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.DisplayName != "বিথী" || !got.CreatedAt.Equal(now) {
		t.Errorf("Get() = %+v", got)
	}
	if _, err := store.GetByEmail(ctx, "b@example.com"); err != nil {
		t.Errorf("GetByEmail() error = %v", err)
	}
	if _, err := store.Get(ctx, uuid.NewString()); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByEmail(ctx, "none@example.com"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("GetByEmail(missing) error = %v, want ErrNotFound", err)
	}

	got.Premium = true
	got.UpdatedAt = now.Add(time.Hour)
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	reread, _ := store.Get(ctx, u.ID)
	if !reread.Premium {
		t.Error("Update() did not persist premium")
	}
	missing := got
	missing.ID = uuid.NewString()
	if err := store.Update(ctx, missing); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}

	other := u
	other.ID = uuid.NewString()
	other.Email = "a@example.com"
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create(other) error = %v", err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Email != "a@example.com" {
		t.Errorf("List() = %d users, want 2 ordered by email", len(list))
	}
}

package cache

import (
	"context"
	"database/sql"
	"testing"

	"hearth/api/internal/store"
	"github.com/alicebob/miniredis/v2"
)

type fakeBacking struct {
	hits     int
	accounts map[string]store.Account
}

func (f *fakeBacking) GetAccountByID(_ context.Context, accountID string) (store.Account, error) {
	f.hits++
	account, ok := f.accounts[accountID]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func setupTestDirectory(t *testing.T) (*AccountDirectory, *fakeBacking, *miniredis.Miniredis) {
	t.Helper()
	redisServer := miniredis.RunT(t)
	backing := &fakeBacking{accounts: map[string]store.Account{
		"acc-1": {ID: "acc-1", DisplayName: "Ana", Email: "ana@example.com"},
	}}
	directory, err := NewAccountDirectory("redis://"+redisServer.Addr(), backing)
	if err != nil {
		t.Fatalf("NewAccountDirectory: %v", err)
	}
	return directory, backing, redisServer
}

func TestGetAccountByIDCachesHits(t *testing.T) {
	directory, backing, redisServer := setupTestDirectory(t)
	defer directory.Close()
	defer redisServer.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		account, err := directory.GetAccountByID(ctx, "acc-1")
		if err != nil {
			t.Fatalf("GetAccountByID: %v", err)
		}
		if account.DisplayName != "Ana" {
			t.Errorf("displayName = %q", account.DisplayName)
		}
	}
	if backing.hits != 1 {
		t.Errorf("backing store hit %d times, want 1", backing.hits)
	}
}

func TestGetAccountByIDMissIsNotCached(t *testing.T) {
	directory, backing, redisServer := setupTestDirectory(t)
	defer directory.Close()
	defer redisServer.Close()

	ctx := context.Background()
	if _, err := directory.GetAccountByID(ctx, "acc-missing"); err == nil {
		t.Fatal("expected error for unknown account")
	}

	backing.accounts["acc-missing"] = store.Account{ID: "acc-missing", DisplayName: "Late"}
	account, err := directory.GetAccountByID(ctx, "acc-missing")
	if err != nil {
		t.Fatalf("GetAccountByID after creation: %v", err)
	}
	if account.DisplayName != "Late" {
		t.Errorf("displayName = %q", account.DisplayName)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	directory, backing, redisServer := setupTestDirectory(t)
	defer directory.Close()
	defer redisServer.Close()

	ctx := context.Background()
	if _, err := directory.GetAccountByID(ctx, "acc-1"); err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}

	backing.accounts["acc-1"] = store.Account{ID: "acc-1", DisplayName: "Ana Renamed", Email: "ana@example.com"}
	if err := directory.Invalidate(ctx, "acc-1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	account, err := directory.GetAccountByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetAccountByID after invalidate: %v", err)
	}
	if account.DisplayName != "Ana Renamed" {
		t.Errorf("displayName = %q, want reloaded value", account.DisplayName)
	}
	if backing.hits != 2 {
		t.Errorf("backing store hit %d times, want 2", backing.hits)
	}
}

func TestExpiryEvictsEntries(t *testing.T) {
	directory, backing, redisServer := setupTestDirectory(t)
	defer directory.Close()
	defer redisServer.Close()

	ctx := context.Background()
	if _, err := directory.GetAccountByID(ctx, "acc-1"); err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}

	redisServer.FastForward(directory.ttl * 2)

	if _, err := directory.GetAccountByID(ctx, "acc-1"); err != nil {
		t.Fatalf("GetAccountByID after expiry: %v", err)
	}
	if backing.hits != 2 {
		t.Errorf("backing store hit %d times, want 2 after TTL expiry", backing.hits)
	}
}

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_data.json")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	return s, path
}

func TestOpenCreatesBootstrapAccount(t *testing.T) {
	s, path := openTestStore(t)

	require.NoError(t, s.Authenticate(BootstrapUsername, BootstrapPassword))
	require.ErrorIs(t, s.Authenticate(BootstrapUsername, "wrong"), ErrInvalidCredentials)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc.Users, BootstrapUsername)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Register("alice", "s3cret"))
	require.ErrorIs(t, s.Register("alice", "other"), ErrUsernameTaken)
	require.NoError(t, s.Authenticate("alice", "s3cret"))
}

func TestAuthenticateUpgradesLegacyHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.json")
	sum := sha256.Sum256([]byte("oldpass"))
	legacy := map[string]any{
		"users": map[string]any{
			"bob": map[string]any{
				"password":  hex.EncodeToString(sum[:]),
				"inventory": []any{},
				"history":   []any{},
			},
		},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Authenticate("bob", "oldpass"))
	// The hash must now be bcrypt, so the raw SHA-256 is gone from disk.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(onDisk), hex.EncodeToString(sum[:]))
	require.NoError(t, s.Authenticate("bob", "oldpass"))
}

func TestOpenMigratesLegacyTopLevelLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.json")
	legacy := map[string]any{
		"admin": map[string]any{
			"password":  "0123456789abcdef",
			"inventory": []any{},
			"history":   []any{},
		},
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Inventory("admin")
	require.NoError(t, err)
}

func TestOpenResetsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Authenticate(BootstrapUsername, BootstrapPassword))
}

func TestInventoryRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	item, err := s.AddItem(BootstrapUsername, "Tomato seedlings", "Plant", "12", "greenhouse")
	require.NoError(t, err)
	require.Len(t, item.ID, itemIDLength)

	items, err := s.Inventory(BootstrapUsername)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Tomato seedlings", items[0].Name)

	require.NoError(t, s.DeleteItem(BootstrapUsername, item.ID))
	require.ErrorIs(t, s.DeleteItem(BootstrapUsername, item.ID), ErrNotFound)

	items, err = s.Inventory(BootstrapUsername)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestInventoryNewestFirst(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.AddItem(BootstrapUsername, "first", "Seed", "1", "")
	require.NoError(t, err)
	_, err = s.AddItem(BootstrapUsername, "second", "Tool", "1", "")
	require.NoError(t, err)

	items, err := s.Inventory(BootstrapUsername)
	require.NoError(t, err)
	require.Equal(t, "second", items[0].Name)
	require.Equal(t, "first", items[1].Name)
}

func TestStatsBucketsUnknownCategoriesAsOther(t *testing.T) {
	s, _ := openTestStore(t)

	for _, cat := range []string{"Plant", "Plant", "Seed", "Fertilizer"} {
		_, err := s.AddItem(BootstrapUsername, "item", cat, "1", "")
		require.NoError(t, err)
	}

	stats, err := s.Stats(BootstrapUsername)
	require.NoError(t, err)
	require.Equal(t, 2, stats["Plant"])
	require.Equal(t, 1, stats["Seed"])
	require.Equal(t, 0, stats["Tool"])
	require.Equal(t, 1, stats["Other"])
}

func TestScanHistoryRoundTrip(t *testing.T) {
	s, path := openTestStore(t)

	require.NoError(t, s.LogScan(BootstrapUsername, "/photos/leaf.jpg", "Tomato Early blight", "Infected"))

	// Reopen from disk to prove the mutation was persisted in full.
	s2, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	history, err := s2.History(BootstrapUsername)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "leaf.jpg", history[0].File)
	require.Equal(t, "Infected", history[0].Status)
}

func TestRepeatedAddDeleteCyclesLoseNothing(t *testing.T) {
	s, path := openTestStore(t)

	keep, err := s.AddItem(BootstrapUsername, "stays", "Tool", "1", "")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		item, err := s.AddItem(BootstrapUsername, fmt.Sprintf("item-%d", i), "Seed", "1", "")
		require.NoError(t, err)
		require.NoError(t, s.LogScan(BootstrapUsername, fmt.Sprintf("scan-%d.jpg", i), "healthy", "Healthy"))
		require.NoError(t, s.DeleteItem(BootstrapUsername, item.ID))
	}

	s2, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	items, err := s2.Inventory(BootstrapUsername)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, keep.ID, items[0].ID)

	history, err := s2.History(BootstrapUsername)
	require.NoError(t, err)
	require.Len(t, history, 100)
}

func TestOperationsOnUnknownUser(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Inventory("ghost")
	require.ErrorIs(t, err, ErrUnknownUser)
	require.ErrorIs(t, s.LogScan("ghost", "x.jpg", "r", "s"), ErrUnknownUser)
	_, err = s.AddItem("ghost", "n", "Plant", "1", "")
	require.ErrorIs(t, err, ErrUnknownUser)
}

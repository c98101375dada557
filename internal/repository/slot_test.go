package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []domain.LineItem {
	return []domain.LineItem{
		{Product: domain.Product{ID: 2, Title: "Tênis VR Caminhada", Price: 139.9, Image: "b.jpg"}, Amount: 1},
		{Product: domain.Product{ID: 1, Title: "Tênis de Caminhada", Price: 179.9, Image: "a.jpg"}, Amount: 3},
	}
}

// exerciseSlot checks the contract every backend has to honour.
func exerciseSlot(t *testing.T, provider SlotProvider) {
	t.Helper()
	ctx := context.Background()

	slot := provider.Slot("session-a")
	_, err := slot.Read(ctx)
	require.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Write(ctx, sampleItems()))
	got, err := slot.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleItems(), got, "order and fields survive the round trip")

	// sessions are isolated
	_, err = provider.Slot("session-b").Read(ctx)
	require.ErrorIs(t, err, ErrSlotEmpty)

	// writes replace the snapshot wholesale
	require.NoError(t, slot.Write(ctx, sampleItems()[:1]))
	got, err = slot.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// an empty cart is stored, not treated as missing
	require.NoError(t, slot.Write(ctx, nil))
	got, err = slot.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemoryProvider())
}

func TestMemorySlot_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	slot := NewMemoryProvider().Slot("s")
	require.NoError(t, slot.Write(ctx, sampleItems()))

	got, err := slot.Read(ctx)
	require.NoError(t, err)
	got[0].Amount = 99

	again, err := slot.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Amount)
}

func TestFileSlot(t *testing.T) {
	provider, err := NewFileProvider(t.TempDir())
	require.NoError(t, err)
	exerciseSlot(t, provider)
}

func TestFileSlot_SanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewFileProvider(dir)
	require.NoError(t, err)

	require.NoError(t, provider.Slot("../../etc/passwd").Write(context.Background(), sampleItems()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "______etc_passwd.json", entries[0].Name())
}

func TestFileSlot_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewFileProvider(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.json"), []byte("[{"), 0o644))

	_, err = provider.Slot("s").Read(context.Background())
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestFileSlot_CancelledContext(t *testing.T) {
	provider, err := NewFileProvider(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = provider.Slot("s").Write(ctx, sampleItems())
	assert.ErrorIs(t, err, context.Canceled)
}

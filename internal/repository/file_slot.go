package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fjod/go_cart/cart-session/internal/domain"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileProvider stores each session as a JSON array in its own file under dir.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) (*FileProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create slot dir: %w", err)
	}
	return &FileProvider{dir: dir}, nil
}

func (p *FileProvider) Slot(sessionID string) CartSlot {
	name := unsafeName.ReplaceAllString(sessionID, "_") + ".json"
	return &fileSlot{path: filepath.Join(p.dir, name)}
}

type fileSlot struct {
	path string
}

func (s *fileSlot) Read(ctx context.Context) ([]domain.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot failed: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return items, nil
}

// Write replaces the file atomically through a temp file in the same dir.
func (s *fileSlot) Write(ctx context.Context, items []domain.LineItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []domain.LineItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".slot-*")
	if err != nil {
		return fmt.Errorf("create temp slot failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write slot failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close slot failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace slot failed: %w", err)
	}
	return nil
}

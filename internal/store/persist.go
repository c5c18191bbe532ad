package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vdtran/dtstore/internal/record"
)

const tableFileSuffix = ".table.json"

// tableFile is the on-disk form of one table: JSON meta plus rows encoded
// with the binary row codec ([]byte marshals as base64).
type tableFile struct {
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Schema  record.Schema `json:"schema"`
	NextID  int64         `json:"next_id"`
	Rows    []rowFile     `json:"rows"`
}

type rowFile struct {
	ID   int64  `json:"id"`
	Data []byte `json:"data"`
}

func (h *Handle) tablePath(name string) string {
	return filepath.Join(h.dir, name+tableFileSuffix)
}

// flush persists the committed table set: dropped table files are removed
// first so a same-name re-create wins.
func (h *Handle) flush() error {
	for name := range h.dropped {
		if err := os.Remove(h.tablePath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("store: remove dropped table file", "table", name, "err", err)
		}
	}
	h.dropped = make(map[string]bool)

	for _, t := range h.tables {
		if err := h.saveTable(t); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handle) saveTable(t *Table) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}

	tf := tableFile{
		Name:    t.Name,
		Version: t.Version,
		Schema:  t.Schema,
		NextID:  t.nextID,
		Rows:    make([]rowFile, 0, len(t.rows)),
	}
	for _, id := range t.ids {
		data, err := record.Encode(t.Schema, t.rows[id])
		if err != nil {
			return fmt.Errorf("store: encode row %d of %s: %w", id, t.Name, err)
		}
		tf.Rows = append(tf.Rows, rowFile{ID: id, Data: data})
	}

	out, err := json.MarshalIndent(&tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(h.tablePath(t.Name), out, 0o644)
}

// loadAll reads every persisted table in the handle's directory. A missing
// directory is an empty store.
func (h *Handle) loadAll() error {
	paths, err := filepath.Glob(filepath.Join(h.dir, "*"+tableFileSuffix))
	if err != nil {
		return err
	}
	for _, path := range paths {
		t, err := loadTable(path)
		if err != nil {
			return err
		}
		h.tables[t.Name] = t
	}
	return nil
}

func loadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}

	t := newTable(tf.Name, tf.Schema, tf.Version)
	for _, row := range tf.Rows {
		vals, err := record.Decode(tf.Schema, row.Data)
		if err != nil {
			return nil, fmt.Errorf("store: decode row %d of %s: %w", row.ID, tf.Name, err)
		}
		if err := t.Put(row.ID, vals); err != nil {
			return nil, err
		}
	}
	if tf.NextID > t.nextID {
		t.nextID = tf.NextID
	}
	return t, nil
}

// Package source loads documents from a directory tree of markdown files.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WessleyAI/docqa/engine/domain"
)

// DefaultCategory is assigned when no subfolder is selected.
const DefaultCategory = "general"

// Dir reads every .md file under Root, or under Root/Subfolder when set.
// Sources are slash-separated paths relative to Root.
type Dir struct {
	Root      string
	Subfolder string
}

// Load walks the tree in lexical order and returns one Document per file.
// Metadata carries source, title (file name without extension) and category
// (the subfolder, or DefaultCategory).
func (d Dir) Load(ctx context.Context) ([]domain.Document, error) {
	if d.Root == "" {
		return nil, domain.NewConfigurationError("DOCS_DIR", "", "required")
	}
	base := d.Root
	category := DefaultCategory
	if d.Subfolder != "" {
		base = filepath.Join(d.Root, d.Subfolder)
		category = d.Subfolder
	}
	if fi, err := os.Stat(base); err != nil || !fi.IsDir() {
		return nil, domain.NewConfigurationError("DOCS_DIR", base, "not a readable directory")
	}

	var docs []domain.Document
	err := filepath.WalkDir(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		name := path.Base(rel)
		docs = append(docs, domain.Document{
			Content:  PlainText(string(raw)),
			Source:   rel,
			Metadata: map[string]any{
				domain.MetaSource:   rel,
				domain.MetaTitle:    strings.TrimSuffix(name, path.Ext(name)),
				domain.MetaCategory: category,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", base, err)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

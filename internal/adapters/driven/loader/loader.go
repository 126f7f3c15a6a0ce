// Package loader extracts plain text from files on disk so they can be
// chunked and embedded. It handles plain text, markdown and PDF.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
	"github.com/stackpine/ragcell/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads files and directories into raw documents.
type Loader struct{}

// New creates a filesystem document loader.
func New() *Loader {
	return &Loader{}
}

// SupportedExtensions returns the file extensions the loader handles.
func (l *Loader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf"}
}

// Load reads path, a file or a directory, and returns the extracted
// documents sorted by path with pages ascending. Inside a directory,
// files with unsupported extensions are collected as skipped; naming an
// unsupported file directly is an error.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.RawDocument, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("path %s: %w", path, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if !l.supported(path) {
			return nil, nil, fmt.Errorf("unsupported file type %s: %w", filepath.Ext(path), domain.ErrInvalidInput)
		}
		docs, err := l.loadFile(ctx, path)
		return docs, nil, err
	}

	files, skipped, err := l.collect(path)
	if err != nil {
		return nil, nil, err
	}

	var docs []domain.RawDocument
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		fileDocs, err := l.loadFile(ctx, file)
		if err != nil {
			return nil, skipped, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, skipped, nil
}

// collect walks dir and splits its files into supported (sorted) and
// skipped. Hidden files and directories are ignored entirely.
func (l *Loader) collect(dir string) (files, skipped []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != dir
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}
		if !l.supported(path) {
			skipped = append(skipped, path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	sort.Strings(skipped)
	return files, skipped, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]domain.RawDocument, error) {
	logger.Debug("loading %s", path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(ctx, path)
	case ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		text := extractMarkdown(raw)
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []domain.RawDocument{{Text: text, Source: path}}, nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			return nil, nil
		}
		return []domain.RawDocument{{Text: string(raw), Source: path}}, nil
	}
}

func (l *Loader) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range l.SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/engine"
)

// metaSuffix names the optional metadata sidecar of a document:
// contract.txt is described by contract.txt.meta.yaml.
const metaSuffix = ".meta.yaml"

// readDocument loads the extracted text at path. Metadata is built from the
// file itself (filename, size, name and the given default ID), then the
// sidecar file, then overrides, each layer replacing keys of the previous
// one. An empty id defaults to the filename without extension.
func readDocument(path, id string, overrides map[string]string) (engine.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		return engine.Document{}, fmt.Errorf("%s is not UTF-8 text; extract the document text first", path)
	}

	base := filepath.Base(path)
	if id == "" {
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	meta := engine.Metadata{
		engine.MetaDocumentID:   id,
		engine.MetaDocumentName: base,
		engine.MetaFilename:     base,
		engine.MetaSize:         int64(len(data)),
	}

	sidecar, err := readSidecar(path + metaSuffix)
	if err != nil {
		return engine.Document{}, err
	}
	for k, v := range sidecar {
		meta[k] = v
	}
	for k, v := range overrides {
		meta[k] = v
	}

	return engine.Document{Text: string(data), Metadata: meta}, nil
}

// readSidecar decodes a metadata sidecar. A missing sidecar is empty.
func readSidecar(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta map[string]any
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return meta, nil
}

// collectProject returns the files under dir matching any include pattern,
// sorted, without metadata sidecars. Patterns are doublestar globs relative
// to dir, such as "**/*.txt".
func collectProject(dir string, include []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	var paths []string
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
		}
		for _, m := range matches {
			if strings.HasSuffix(m, metaSuffix) {
				continue
			}
			paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}

	slices.Sort(paths)
	return slices.Compact(paths), nil
}

// readProject loads every document of a project directory. Document IDs
// are the slash-separated paths relative to dir without extension, so files
// with the same name in different folders stay distinct.
func readProject(dir string, include []string, progress cli.ProgressReporter) ([]engine.Document, error) {
	paths, err := collectProject(dir, include)
	if err != nil {
		return nil, err
	}

	progress.Start(int64(len(paths)))
	docs := make([]engine.Document, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		doc, err := readDocument(p, strings.TrimSuffix(rel, filepath.Ext(rel)), nil)
		if err != nil {
			progress.Error(err)
			return nil, err
		}
		docs = append(docs, doc)
		progress.Increment()
	}
	progress.Finish()
	return docs, nil
}

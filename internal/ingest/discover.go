package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// IsYAML reports whether name has a YAML extension.
func IsYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Discover lists the YAML documents at root, which may name a file or a
// directory. Directories are walked recursively; a directory is skipped when
// its name or its path (relative to fs) is listed in skip. Results are in
// lexical order.
func Discover(fs billy.Filesystem, root string, skip []string) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, &ConfigError{Msg: "input path " + root, Err: err}
	}
	if !info.IsDir() {
		if IsYAML(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[filepath.Clean(s)] = true
	}

	var docs []string
	err = util.Walk(fs, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if p != root && (skipSet[fi.Name()] || skipSet[filepath.Clean(p)]) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsYAML(p) {
			docs = append(docs, p)
		}
		return nil
	})
	if err != nil {
		return nil, &ConfigError{Msg: "walk " + root, Err: err}
	}

	sort.Strings(docs)
	return docs, nil
}

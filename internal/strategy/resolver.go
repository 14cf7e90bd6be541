package strategy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// BaseClassToken must appear in a class declaration's base list.
	BaseClassToken = "IStrategy"

	// SourceExt is the extension of strategy source files.
	SourceExt = ".py"
)

// ErrNotFound is returned when no source file declares the requested class.
var ErrNotFound = errors.New("strategy not found")

var classPattern = regexp.MustCompile(`class\s+(\w+)\s*\(.*` + BaseClassToken + `.*\)\s*:`)

// declarationPattern matches "class <name>(...IStrategy...):".
func declarationPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`class\s+` + regexp.QuoteMeta(name) + `\s*\(.*` + BaseClassToken + `.*\)\s*:`)
}

// SourceFiles lists strategy source files under dir in lexical order. With
// recursive unset only dir's own entries are listed. A missing dir yields no
// files.
func SourceFiles(dir string, recursive bool) ([]string, error) {
	if !recursive {
		files, err := filepath.Glob(filepath.Join(dir, "*"+SourceExt))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing strategy sources in %s: %w", dir, err)
	}
	return files, nil
}

// FindFile returns the first source file under dir whose text declares class
// name with the IStrategy base. ErrNotFound is returned when none does.
func FindFile(name, dir string, recursive bool) (string, error) {
	files, err := SourceFiles(dir, recursive)
	if err != nil {
		return "", err
	}

	pattern := declarationPattern(name)
	for _, file := range files {
		code, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		if pattern.Match(code) {
			return file, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s (%d files checked)", ErrNotFound, name, dir, len(files))
}

// ListClasses returns the sorted, de-duplicated names of every IStrategy
// class declared in the source files below dir.
func ListClasses(dir string) ([]string, error) {
	files, err := SourceFiles(dir, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, file := range files {
		code, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		for _, m := range classPattern.FindAllSubmatch(code, -1) {
			seen[string(m[1])] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

package script

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// EntryName is the script every project starts from.
const EntryName = "main.lua"

// ErrEntryNotFound is returned when no main.lua exists under the root.
var ErrEntryNotFound = errors.New("script: main.lua could not be found")

// FindEntry searches root recursively for main.lua and returns the first
// match in lexical walk order.
func FindEntry(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == EntryName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrEntryNotFound
	}
	return found, nil
}

// CheckSyntax parses and compiles the script at path without running it.
func CheckSyntax(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	chunk, err := parse.Parse(f, path)
	if err != nil {
		return err
	}
	_, err = lua.Compile(chunk, path)
	return err
}

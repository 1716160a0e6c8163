// Package profiles discovers the user profiles under an Anki base directory.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruminaider/anki-crossprofile/internal/paths"

	_ "modernc.org/sqlite"
)

// GlobalProfile is the reserved prefs21.db row holding app-wide settings.
const GlobalProfile = "_global"

// ErrNotFound is returned when a named profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Profile is one user's data directory.
type Profile struct {
	Name       string
	Dir        string
	Collection string
	Media      string
}

// List returns the profile names under baseDir, sorted case-insensitively.
// Names come from prefs21.db when it exists; otherwise every sub-directory
// holding a collection.anki2 counts as a profile.
func List(baseDir string) ([]string, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("listing profiles: %s is not a directory", baseDir)
	}

	names, err := fromPrefs(paths.PrefsFile(baseDir))
	if err != nil {
		return nil, err
	}
	if names == nil {
		names, err = fromDirs(baseDir)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

// Others returns every profile except current.
func Others(baseDir, current string) ([]string, error) {
	all, err := List(baseDir)
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(all))
	for _, name := range all {
		if name != current {
			others = append(others, name)
		}
	}
	return others, nil
}

// CollectionPath returns the collection file of the named profile.
func CollectionPath(baseDir, name string) string {
	return paths.CollectionFile(baseDir, name)
}

// MediaDir returns the media folder of the named profile.
func MediaDir(baseDir, name string) string {
	return paths.MediaDir(baseDir, name)
}

// Resolve looks up a profile by exact name.
func Resolve(baseDir, name string) (Profile, error) {
	names, err := List(baseDir)
	if err != nil {
		return Profile{}, err
	}
	for _, n := range names {
		if n == name {
			return Profile{
				Name:       name,
				Dir:        paths.ProfileDir(baseDir, name),
				Collection: CollectionPath(baseDir, name),
				Media:      MediaDir(baseDir, name),
			}, nil
		}
	}
	return Profile{}, fmt.Errorf("profile %q: %w", name, ErrNotFound)
}

// fromPrefs reads profile names from prefs21.db. It returns nil, nil when
// the file does not exist.
func fromPrefs(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile database: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving profile database: %w", err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro&_pragma=query_only(1)",
	}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}

	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), `SELECT name FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("reading profile database: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning profile name: %w", err)
		}
		if name == GlobalProfile {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading profile database: %w", err)
	}
	return names, nil
}

func fromDirs(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == GlobalProfile || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(paths.CollectionFile(baseDir, e.Name())); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

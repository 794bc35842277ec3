package updates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ListPendingUpdates returns the update files directly inside dir, sorted by
// name. Subdirectories are not searched. A directory with no update files
// yields an empty slice.
func ListPendingUpdates(dir string) ([]UpdateFile, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list updates in %s: %w", abs, err)
	}

	files := make([]UpdateFile, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Extension) {
			continue
		}
		info, err := de.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// Removed between ReadDir and Info.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, UpdateFile{
			Path:    filepath.Join(abs, de.Name()),
			Name:    de.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// olderFirst orders by modification time, then case-insensitive name, then
// exact name.
func olderFirst(at time.Time, an string, bt time.Time, bn string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	if la, lb := strings.ToLower(an), strings.ToLower(bn); la != lb {
		return la < lb
	}
	return an < bn
}

// SortOldestFirst orders files by captured modification time, ties broken by
// name.
func SortOldestFirst(files []UpdateFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return olderFirst(files[i].ModTime, files[i].Name, files[j].ModTime, files[j].Name)
	})
}

package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// PathUsage is the on-disk footprint of one storage location.
type PathUsage struct {
	Path  string
	Bytes int64
	Files int
}

// DiskUsage measures each path, summing directories recursively. Missing and
// empty paths report zero.
func DiskUsage(paths ...string) ([]PathUsage, error) {
	out := make([]PathUsage, 0, len(paths))
	for _, p := range paths {
		u := PathUsage{Path: p}
		if p != "" {
			if err := measure(p, &u); err != nil {
				return nil, err
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// TotalBytes sums the bytes of every entry.
func TotalBytes(usage []PathUsage) int64 {
	var total int64
	for _, u := range usage {
		total += u.Bytes
	}
	return total
}

func measure(root string, u *PathUsage) error {
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Bytes += info.Size()
		u.Files++
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
)

// Archive zips the given files flat into <dir>/<name>.zip and returns
// the path written.
func Archive(dir, name string, files []string) (string, error) {
	path := filepath.Join(dir, name+".zip")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	zw := zip.NewWriter(f)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return path, f.Close()
}

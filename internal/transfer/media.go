package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyMedia copies the named files from srcDir to dstDir, leaving files
// that already exist in dstDir alone. It returns the names actually copied;
// files missing from srcDir are reported in the joined error.
func copyMedia(srcDir, dstDir string, names []string) ([]string, error) {
	if srcDir == "" || dstDir == "" {
		return nil, fmt.Errorf("copying media: media directories not configured")
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}

	var (
		copied []string
		errs   []error
	)
	for _, name := range names {
		dst := filepath.Join(dstDir, name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		ok, err := copyFile(filepath.Join(srcDir, name), dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			copied = append(copied, name)
		}
	}
	return copied, errors.Join(errs...)
}

// copyFile copies src to dst without overwriting. It reports false when
// dst appeared in the meantime.
func copyFile(src, dst string) (bool, error) {
	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("opening media file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating media file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return false, fmt.Errorf("copying %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("writing %s: %w", filepath.Base(src), err)
	}
	return true, nil
}

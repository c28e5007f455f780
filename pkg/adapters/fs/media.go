package fs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/ankihorse/pkg/core"
)

// maxNameAttempts bounds the numeric suffixes tried for clashing media names.
const maxNameAttempts = 1000

// AddFile copies the file at path into the media directory and returns the
// name notes should reference. A file with identical content under the same
// name is reused; a different file under the same name gets a numeric
// suffix ("cat-1.jpg").
func (v *Vault) AddFile(ctx context.Context, path string) (string, error) {
	if v.config.ReadOnly {
		return "", core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sum, err := fileDigest(path)
	if err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	if err := os.MkdirAll(v.mediaPath(), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < maxNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		dst := filepath.Join(v.mediaPath(), name)

		existing, err := fileDigest(dst)
		if os.IsNotExist(err) {
			if err := copyFile(dst, path); err != nil {
				return "", err
			}
			v.logger.Debug("added media file", "name", name)
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read media file: %w", err)
		}
		if bytes.Equal(existing, sum) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free media name for %s", base)
}

// MediaPath returns the absolute path of a media file.
func (v *Vault) MediaPath(name string) string {
	return filepath.Join(v.mediaPath(), filepath.Base(name))
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := writeAtomic(dst, in, 0644); err != nil {
		return fmt.Errorf("failed to copy media file: %w", err)
	}
	return nil
}

// Package artifact acquires runtime installations: it downloads, verifies
// and unpacks versioned artifacts into a local cache and hands out the
// resulting installation directories.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/modrac/pkgeval/internal/model"
)

// Cache resolves runtime versions to unpacked installation directories.
// Acquire is idempotent per version: the download and the unpack happen on
// first use, later calls reuse the cached copy. The checksum of the cached
// artifact is verified on every call, so a corrupted cache entry keeps
// failing until it is removed.
type Cache struct {
	manifest Manifest
	dir      string
	client   *http.Client
}

func NewCache(manifest Manifest, dir string) *Cache {
	return &Cache{
		manifest: manifest,
		dir:      dir,
		client:   &http.Client{},
	}
}

// Acquire returns the installation directory for version, creating it if
// needed. Unknown versions and checksum mismatches are fatal and never
// retried.
func (c *Cache) Acquire(ctx context.Context, version string) (string, error) {
	spec, ok := c.manifest[version]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrVersionNotFound, version)
	}

	dest := filepath.Join(c.dir, "installs", version)

	switch {
	case spec.URL != "":
		archive := filepath.Join(c.dir, "downloads", filepath.Base(spec.URL))
		if _, err := os.Stat(archive); err != nil {
			if err := c.download(ctx, spec.URL, archive); err != nil {
				return "", fmt.Errorf("downloading %s: %w", spec.URL, err)
			}
		}
		if err := verify(archive, spec.SHA); err != nil {
			return "", err
		}
		// force: an interrupted earlier unpack must not be trusted
		if err := unpack(ctx, archive, dest, true); err != nil {
			return "", fmt.Errorf("unpacking %s: %w", archive, err)
		}
	case spec.File != "":
		file := spec.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(c.dir, file)
		}
		if err := verify(file, spec.SHA); err != nil {
			return "", err
		}
		if err := unpack(ctx, file, dest, false); err != nil {
			return "", fmt.Errorf("unpacking %s: %w", file, err)
		}
	default:
		return "", fmt.Errorf("version %s has no artifact source", version)
	}

	install, err := resolveInstall(dest)
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "runtime acquired", "version", version, "install", install)
	return install, nil
}

func (c *Cache) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	// write to a temp name first so a torn download never looks cached
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part*")
	if err != nil {
		return err
	}
	_, err = io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	slog.DebugContext(ctx, "artifact downloaded", "url", url, "dest", dest)
	return nil
}

func verify(path, wantSHA string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening artifact: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing artifact: %w", err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, wantSHA) {
		return fmt.Errorf("%w: %s: got %s, want %s", model.ErrChecksumMismatch, path, got, wantSHA)
	}
	return nil
}

// resolveInstall handles archives which nest the runtime one level inside a
// single top-level directory: exactly one entry means descend.
func resolveInstall(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", fmt.Errorf("listing installation: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}

package artifact

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// unpack extracts the .tar.gz archive into dest. With force any previous
// (possibly partial) unpack is discarded first; without it an existing
// destination is treated as already valid and left alone.
func unpack(ctx context.Context, archive, dest string, force bool) error {
	if force {
		if err := os.RemoveAll(dest); err != nil {
			return err
		}
	} else if _, err := os.Stat(dest); err == nil {
		slog.DebugContext(ctx, "destination exists, skipping unpack", "dest", dest)
		return nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		path, err := sanitizePath(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, os.FileMode(header.Mode)|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(path, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := sanitizeLink(dest, path, header.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, path); err != nil {
				return err
			}
		default:
			slog.DebugContext(ctx, "skipping tar entry", "name", header.Name, "type", header.Typeflag)
		}
	}
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

func sanitizePath(dest, name string) (string, error) {
	path := filepath.Join(dest, filepath.Clean(name))
	if path != dest && !strings.HasPrefix(path, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("tar entry %q escapes destination", name)
	}
	return path, nil
}

// sanitizeLink rejects symlink targets pointing outside dest; files written
// through such a link would land outside the installation.
func sanitizeLink(dest, path, link string) error {
	if filepath.IsAbs(link) {
		return fmt.Errorf("tar symlink %q has absolute target %q", path, link)
	}
	target := filepath.Join(filepath.Dir(path), link)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return fmt.Errorf("tar symlink %q target %q escapes destination", path, link)
	}
	return nil
}

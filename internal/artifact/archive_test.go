package artifact

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTarGz(t *testing.T, dir string, fill func(tw *tar.Writer)) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	fill(tw)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	archive := filepath.Join(dir, "a.tar.gz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))
	return archive
}

func TestUnpackSymlinks(t *testing.T) {
	t.Parallel()

	t.Run("escaping target", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		archive := writeTarGz(t, dir, func(tw *tar.Writer) {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     "bin/runtime",
				Typeflag: tar.TypeSymlink,
				Linkname: "../../../outside",
			}))
		})
		err := unpack(t.Context(), archive, filepath.Join(dir, "dest"), true)
		require.ErrorContains(t, err, "escapes destination")
	})

	t.Run("absolute target", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		archive := writeTarGz(t, dir, func(tw *tar.Writer) {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     "bin/sh",
				Typeflag: tar.TypeSymlink,
				Linkname: "/bin/sh",
			}))
		})
		err := unpack(t.Context(), archive, filepath.Join(dir, "dest"), true)
		require.ErrorContains(t, err, "absolute target")
	})

	t.Run("internal target", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		archive := writeTarGz(t, dir, func(tw *tar.Writer) {
			content := []byte("#!/bin/sh\n")
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     "bin/runtime-1.2",
				Typeflag: tar.TypeReg,
				Mode:     0o755,
				Size:     int64(len(content)),
			}))
			_, err := tw.Write(content)
			require.NoError(t, err)
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     "bin/runtime",
				Typeflag: tar.TypeSymlink,
				Linkname: "runtime-1.2",
			}))
		})
		dest := filepath.Join(dir, "dest")
		require.NoError(t, unpack(t.Context(), archive, dest, true))
		link, err := os.Readlink(filepath.Join(dest, "bin", "runtime"))
		require.NoError(t, err)
		require.Equal(t, "runtime-1.2", link)
	})
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := []byte("evil")
	archive := writeTarGz(t, dir, func(tw *tar.Writer) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "../evil",
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	})

	err := unpack(t.Context(), archive, filepath.Join(dir, "dest"), true)
	require.ErrorContains(t, err, "escapes destination")
	require.NoFileExists(t, filepath.Join(dir, "evil"))
}

func TestUnpackForceDiscardsPartialUnpack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := []byte("ok")
	archive := writeTarGz(t, dir, func(tw *tar.Writer) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "good",
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	})

	dest := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	partial := filepath.Join(dest, "partial")
	require.NoError(t, os.WriteFile(partial, []byte("torn"), 0o644))

	require.NoError(t, unpack(t.Context(), archive, dest, true))
	require.NoFileExists(t, partial)
	require.FileExists(t, filepath.Join(dest, "good"))
}

package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutter/internal/archive"
	_ "declutter/internal/archive/tarx"
	_ "declutter/internal/archive/zipx"
	"declutter/pkg/magic"
)

func TestStem(t *testing.T) {
	tests := map[string]string{
		"backup.zip":     "backup",
		"backup.ZIP":     "backup",
		"backup.tar.gz":  "backup",
		"backup.TAR.GZ":  "backup",
		"backup.tar.zst": "backup",
		"backup.tgz":     "backup",
		"my.files.tar":   "my.files",
		"noext":          "noext",
		".zip":           ".zip",
		".tar.gz":        ".tar",
	}

	for in, want := range tests {
		assert.Equal(t, want, archive.Stem(in), "input %q", in)
	}
}

func TestDecodeError(t *testing.T) {
	assert.NoError(t, archive.DecodeError(magic.KindZip, nil))

	decoded := archive.DecodeError(magic.KindGzip, errors.New("bad header"))
	assert.ErrorIs(t, decoded, archive.ErrNotArchive)

	pathErr := &fs.PathError{Op: "read", Path: "/x", Err: errors.New("io")}
	assert.Same(t, error(pathErr), archive.DecodeError(magic.KindGzip, pathErr))
	assert.NotErrorIs(t, archive.DecodeError(magic.KindGzip, pathErr), archive.ErrNotArchive)

	assert.ErrorIs(t, archive.DecodeError(magic.KindTar, context.Canceled), context.Canceled)
	assert.NotErrorIs(t, archive.DecodeError(magic.KindTar, context.Canceled), archive.ErrNotArchive)
}

func TestWithinDir(t *testing.T) {
	dir := t.TempDir()

	path, err := archive.WithinDir(dir, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b.txt"), path)

	_, err = archive.WithinDir(dir, "../escape.txt")
	assert.Error(t, err)

	assert.True(t, archive.IsWithin(dir, dir))
	assert.False(t, archive.IsWithin(dir, dir+"-sibling"))
}

func TestUnpack(t *testing.T) {
	files := map[string]string{"a.txt": "hello", "sub/b.txt": "world"}
	flat := map[string]string{"a.txt": "hello", "b.txt": "world"}

	tests := map[string]struct {
		data  []byte
		check map[string]string
	}{
		"zip":     {data: buildZip(t, flat), check: flat},
		"tar":     {data: buildTar(t, files), check: files},
		"tar.gz":  {data: gzipBytes(t, buildTar(t, files), ""), check: files},
		"tar.zst": {data: zstdBytes(t, buildTar(t, files)), check: files},
		"gzip single file": {
			data:  gzipBytes(t, []byte("plain"), "inner.txt"),
			check: map[string]string{"inner.txt": "plain"},
		},
		"gzip without name": {
			data:  gzipBytes(t, []byte("plain"), ""),
			check: map[string]string{"out": "plain"},
		},
		"zstd single file": {
			data:  zstdBytes(t, []byte("plain")),
			check: map[string]string{"out": "plain"},
		},
	}

	for tn, tc := range tests {
		t.Run(tn, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "archive.bin")
			require.NoError(t, os.WriteFile(src, tc.data, 0o644))

			out := filepath.Join(t.TempDir(), "out")
			require.NoError(t, os.Mkdir(out, 0o755))

			require.NoError(t, archive.Default().Unpack(context.Background(), src, out))

			for name, body := range tc.check {
				got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
				require.NoError(t, err, name)
				assert.Equal(t, body, string(got), name)
			}
		})
	}
}

func TestUnpackNotArchive(t *testing.T) {
	tests := map[string][]byte{
		"plain text":     []byte("this is a text file pretending to be a zip archive"),
		"empty":          nil,
		"corrupt zip":    append([]byte{0x50, 0x4b, 0x03, 0x04}, bytes.Repeat([]byte{0}, 64)...),
		"corrupt gzip":   append([]byte{0x1f, 0x8b}, bytes.Repeat([]byte{0xff}, 64)...),
		"truncated gzip": truncate(gzipBytes(t, bytes.Repeat([]byte("abc"), 4096), "x.txt")),
	}

	for tn, data := range tests {
		t.Run(tn, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "garbage.zip")
			require.NoError(t, os.WriteFile(src, data, 0o644))

			out := t.TempDir()
			err := archive.Unpack(context.Background(), src, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, archive.ErrNotArchive, "got %T %v", err, err)

			var formatErr *archive.FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestUnpackMissingFileIsNotFormatError(t *testing.T) {
	err := archive.Unpack(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, archive.ErrNotArchive)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestUnpackRejectsEscapingTarEntries(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../evil.txt", Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	root := t.TempDir()
	src := filepath.Join(root, "evil.tar")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))
	out := filepath.Join(root, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	err = archive.Unpack(context.Background(), src, out)
	assert.ErrorIs(t, err, archive.ErrNotArchive)
	assert.NoFileExists(t, filepath.Join(root, "evil.txt"))
}

func TestUnpackRejectsEscapingZipSymlinks(t *testing.T) {
	for tn, target := range map[string]string{
		"absolute": "/etc/passwd",
		"relative": "../../outside",
	} {
		t.Run(tn, func(t *testing.T) {
			root := t.TempDir()
			src := filepath.Join(root, "evil.zip")
			require.NoError(t, os.WriteFile(src, buildZipWithSymlink(t, "evil", target), 0o644))
			out := filepath.Join(root, "out")
			require.NoError(t, os.Mkdir(out, 0o755))

			err := archive.Unpack(context.Background(), src, out)
			assert.ErrorIs(t, err, archive.ErrNotArchive)

			_, statErr := os.Lstat(filepath.Join(out, "evil"))
			assert.ErrorIs(t, statErr, fs.ErrNotExist)
			assert.NoFileExists(t, filepath.Join(out, "a.txt"))
		})
	}
}

func TestLinkWithin(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, archive.LinkWithin(dir, filepath.Join(dir, "link"), "a.txt"))
	assert.True(t, archive.LinkWithin(dir, filepath.Join(dir, "sub", "link"), "../a.txt"))
	assert.False(t, archive.LinkWithin(dir, filepath.Join(dir, "link"), "../a.txt"))
	assert.False(t, archive.LinkWithin(dir, filepath.Join(dir, "link"), filepath.Join(dir, "a.txt")))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := archive.NewExtractor(magic.KindUnknown, bytes.NewReader(nil), 0, t.TempDir())
	assert.ErrorIs(t, err, archive.ErrUnsupportedArchiveFormat)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildZipWithSymlink returns a zip holding a.txt followed by a symlink.
func buildZipWithSymlink(t *testing.T, name, target string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("a.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	hdr.SetMode(os.ModeSymlink | 0o777)
	w, err = zw.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte(target))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte, name string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Header.Name = name
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

func truncate(b []byte) []byte {
	if len(b) < 20 {
		panic(fmt.Sprintf("archive too small to truncate: %d", len(b)))
	}
	return b[:len(b)/2]
}

package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 0x8B, A: 0xFF})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeSize(t *testing.T, path string) (int, int, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestMaterialize_Resizes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 40, 20)

	dsts := []string{
		filepath.Join(dir, "public", "a.png"),
		filepath.Join(dir, "logos", "nested", "a.png"),
	}

	method, err := Materialize(src, dsts, 24, 24)
	require.NoError(t, err)
	assert.Equal(t, MethodResized, method)

	for _, dst := range dsts {
		w, h, format := decodeSize(t, dst)
		assert.Equal(t, 24, w)
		assert.Equal(t, 24, h)
		assert.Equal(t, "png", format)
	}
}

func TestMaterialize_ResizesJPEGToPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 10, 10)), nil))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "out.png")
	method, err := Materialize(src, []string{dst}, 6, 8)
	require.NoError(t, err)
	assert.Equal(t, MethodResized, method)

	w, h, format := decodeSize(t, dst)
	assert.Equal(t, 6, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, "png", format)
}

func TestMaterialize_CopyWhenResizeDisabled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 40, 20)
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dsts := []string{filepath.Join(dir, "a", "x.png"), filepath.Join(dir, "b", "x.png")}
	method, err := Materialize(src, dsts, 24, 24, WithResize(false))
	require.NoError(t, err)
	assert.Equal(t, MethodCopied, method)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	for _, dst := range dsts {
		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mtime))
	}
}

func TestMaterialize_CopyWhenFormatUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	content := []byte("not really an image")
	require.NoError(t, os.WriteFile(src, content, 0o600))

	dst := filepath.Join(dir, "out", "x.png")
	method, err := Materialize(src, []string{dst}, 24, 24)
	require.NoError(t, err)
	assert.Equal(t, MethodCopied, method)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestMaterialize_Errors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 4, 4)

	_, err := Materialize(src, nil, 4, 4)
	assert.Error(t, err)

	_, err = Materialize(filepath.Join(dir, "missing.png"), []string{filepath.Join(dir, "o.png")}, 4, 4)
	assert.Error(t, err)

	_, err = Materialize(src, []string{filepath.Join(dir, "o.png")}, 0, 4)
	assert.Error(t, err)

	// a zero size is fine when nothing is resized
	method, err := Materialize(src, []string{filepath.Join(dir, "o.png")}, 0, 0, WithResize(false))
	require.NoError(t, err)
	assert.Equal(t, MethodCopied, method)
}

func TestMaterialize_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 8, 8)
	out := filepath.Join(dir, "out")

	_, err := Materialize(src, []string{filepath.Join(out, "x.png")}, 4, 4)
	require.NoError(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.png", entries[0].Name())
}

func TestSelectStrategy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 4, 4)

	method, _ := SelectStrategy(src)
	assert.Equal(t, MethodResized, method)

	method, _ = SelectStrategy(src, WithResize(false))
	assert.Equal(t, MethodCopied, method)

	method, _ = SelectStrategy(filepath.Join(dir, "missing.png"))
	assert.Equal(t, MethodCopied, method)
}

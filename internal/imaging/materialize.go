package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/MimeLyc/txt2img-batch/pkg/log"
)

// Method names the strategy used to produce a destination file.
type Method string

const (
	MethodResized Method = "resized"
	MethodCopied  Method = "copied"
)

// Strategy writes dst from src. Both strategies share this contract; copy
// ignores width and height.
type Strategy func(src, dst string, width, height int) error

type options struct {
	resize bool
}

type Option func(*options)

// WithResize turns resizing on or off. It is on by default.
func WithResize(enabled bool) Option {
	return func(o *options) {
		o.resize = enabled
	}
}

// SelectStrategy decides at call time how src is materialized. Resizing is
// used only when enabled and a decoder is registered for src's format;
// otherwise the file is copied byte for byte.
func SelectStrategy(src string, opts ...Option) (Method, Strategy) {
	o := options{resize: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.resize && canDecode(src) {
		return MethodResized, ResizePNG
	}
	return MethodCopied, CopyFile
}

// Materialize writes one copy of src to every destination and reports the
// method used. It stops at the first failing destination.
func Materialize(src string, destinations []string, width, height int, opts ...Option) (Method, error) {
	if len(destinations) == 0 {
		return "", fmt.Errorf("no destinations given")
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("source %s: %w", src, err)
	}

	method, strategy := SelectStrategy(src, opts...)
	if method == MethodResized && (width <= 0 || height <= 0) {
		return "", fmt.Errorf("invalid target size %dx%d", width, height)
	}

	for _, dst := range destinations {
		if err := strategy(src, dst, width, height); err != nil {
			return method, fmt.Errorf("%s %s to %s: %w", method, src, dst, err)
		}
		log.Debug("Materialized %s -> %s (%s)", src, dst, method)
	}
	return method, nil
}

func canDecode(src string) bool {
	f, err := os.Open(src)
	if err != nil {
		return false
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err == nil
}

// ResizePNG scales src to exactly width x height with Catmull-Rom and writes
// it as a PNG at best compression.
func ResizePNG(src, dst string, width, height int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return writeAtomic(dst, 0o644, func(w io.Writer) error {
		return enc.Encode(w, out)
	})
}

// CopyFile copies src to dst byte for byte, keeping mode and modification time.
func CopyFile(src, dst string, _, _ int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func writeAtomic(dst string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

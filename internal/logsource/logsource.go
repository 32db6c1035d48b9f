// Package logsource opens client and server logs, transparently decompressing rotated files.
package logsource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

// Codec identifies how a log file is compressed.
type Codec string

const (
	CodecNone   Codec = "none"
	CodecGzip   Codec = "gzip"
	CodecZstd   Codec = "zstd"
	CodecLZ4    Codec = "lz4"
	CodecSnappy Codec = "snappy"
)

// maxDecoderMemory caps zstd window allocation for hostile inputs.
const maxDecoderMemory = 256 << 20

// CodecFor picks the codec from the file extension.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	case ".sz", ".snappy":
		return CodecSnappy
	default:
		return CodecNone
	}
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over the decompressed contents of path.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError("logsource.Open", path, err)
	}
	r, err := Decode(CodecFor(path), bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, utils.NewAppError("logsource.Open", fmt.Sprintf("decode %s", path), err)
	}
	rc := &readCloser{Reader: r, closers: []func() error{f.Close}}
	if c, ok := r.(io.Closer); ok {
		rc.closers = append([]func() error{c.Close}, rc.closers...)
	}
	return rc, nil
}

// Decode wraps src with the decompressor for codec.
func Decode(codec Codec, src io.Reader) (io.Reader, error) {
	switch codec {
	case CodecNone, "":
		return src, nil
	case CodecGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case CodecZstd:
		dec, err := zstd.NewReader(src, zstd.WithDecoderMaxMemory(maxDecoderMemory))
		if err != nil {
			return nil, err
		}
		return zstdReader{dec}, nil
	case CodecLZ4:
		return lz4.NewReader(src), nil
	case CodecSnappy:
		return snappy.NewReader(src), nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}

// Extension returns the file suffix CodecFor maps back to codec.
func (c Codec) Extension() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	case CodecSnappy:
		return ".sz"
	default:
		return ""
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Encode wraps dst with the compressor for codec. Close flushes the stream but not dst.
func Encode(codec Codec, dst io.Writer) (io.WriteCloser, error) {
	switch codec {
	case CodecNone, "":
		return nopWriteCloser{dst}, nil
	case CodecGzip:
		return gzip.NewWriter(dst), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(dst)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case CodecLZ4:
		return lz4.NewWriter(dst), nil
	case CodecSnappy:
		return snappy.NewBufferedWriter(dst), nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}

// zstdReader adapts Decoder.Close, which returns nothing, to io.Closer.
type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}

// Pair holds the fully read contents of a client and server log.
type Pair struct {
	Client []byte
	Server []byte
}

// ClientReader returns a fresh reader over the client log.
func (p Pair) ClientReader() io.Reader { return bytes.NewReader(p.Client) }

// ServerReader returns a fresh reader over the server log.
func (p Pair) ServerReader() io.Reader { return bytes.NewReader(p.Server) }

// ReadPair reads both logs concurrently. The first failure cancels the other read.
func ReadPair(ctx context.Context, clientPath, serverPath string) (Pair, error) {
	var pair Pair
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := readAll(ctx, clientPath)
		pair.Client = data
		return err
	})
	g.Go(func() error {
		data, err := readAll(ctx, serverPath)
		pair.Server = data
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func readAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return nil, utils.NewAppError("logsource.Read", path, err)
	}
	return data, nil
}

// ctxReader stops a long read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

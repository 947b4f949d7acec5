package mpranalyze

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression identifies the compression layer, if any, wrapped around a
// data file.
type Compression byte

const (
	CompressionInvalid Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionBzip2
)

// Magic-byte signatures, via https://stackoverflow.com/a/19127748/199475
var compressionSigs = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b, 0x08},
	CompressionZip:   {0x50, 0x4b, 0x03, 0x04},
	CompressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	CompressionBzip2: {0x42, 0x5a, 0x68},
}

// DetectCompression sniffs the first bytes of r against the known
// signatures. It consumes up to six bytes; seekable callers should rewind
// afterward. A stream shorter than any signature is taken as uncompressed.
func DetectCompression(r io.Reader) (Compression, error) {
	buf := make([]byte, 6)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return CompressionNone, nil
		}

		return CompressionInvalid, err
	}

Outer:
	for comp, sig := range compressionSigs {
		for i := range sig {
			if buf[i] != sig[i] {
				continue Outer
			}
		}

		return comp, nil
	}

	return CompressionNone, nil
}

// OpenMaybeCompressed opens a count or annotation table that may be gzip,
// zip, xz, or bzip2 compressed, returning a reader over the decompressed
// bytes. A zip archive is positioned at its first entry. Closing the
// returned reader closes the underlying file.
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, pfx.Err(err)
	}

	comp, err := DetectCompression(f)
	if err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}

	switch comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}

		return &decompressedFile{gz, f}, nil

	case CompressionZip:
		zr := zipstream.NewReader(f)
		if _, err := zr.Next(); err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}

		return &decompressedFile{zr, f}, nil

	case CompressionXZ:
		xr, err := xz.NewReader(f, 0)
		if err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}

		return &decompressedFile{xr, f}, nil

	case CompressionBzip2:
		return &decompressedFile{bzip2.NewReader(f), f}, nil
	}

	return f, nil
}

// decompressedFile closes the underlying file together with any closeable
// decompression layer on top of it.
type decompressedFile struct {
	io.Reader
	file *os.File
}

func (d *decompressedFile) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		c.Close()
	}

	return d.file.Close()
}

package magic

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Kind identifies a supported archive container.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindGzip
	KindZstd
	KindTar
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindGzip:
		return "gzip"
	case KindZstd:
		return "zstd"
	case KindTar:
		return "tar"
	default:
		return "unknown"
	}
}

// HeaderSize is the number of bytes needed to recognise every kind; tar
// carries its magic inside the first 512 byte block.
const HeaderSize = 512

const tarMagicOffset = 257

var (
	zipSig      = []byte{0x50, 0x4b, 0x03, 0x04}
	zipEmptySig = []byte{0x50, 0x4b, 0x05, 0x06}
	gzipSig     = []byte{0x1f, 0x8b}
	zstdSig     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarSig      = []byte("ustar")
)

var errShortHeader = errors.New("header too short")

// DetectHeader inspects the start of a file for known signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < len(gzipSig) {
		return KindUnknown, errShortHeader
	}

	switch {
	case bytes.HasPrefix(header, zipSig), bytes.HasPrefix(header, zipEmptySig):
		return KindZip, nil
	case bytes.HasPrefix(header, gzipSig):
		return KindGzip, nil
	case bytes.HasPrefix(header, zstdSig):
		return KindZstd, nil
	}

	if IsTarHeader(header) {
		return KindTar, nil
	}

	return KindUnknown, nil
}

// IsTarHeader reports whether block looks like a ustar (or GNU tar) header.
func IsTarHeader(block []byte) bool {
	end := tarMagicOffset + len(tarSig)
	if len(block) < end {
		return false
	}
	return bytes.Equal(block[tarMagicOffset:end], tarSig)
}

// SniffReader reads up to HeaderSize bytes from r and determines its kind.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindUnknown, err
	}

	kind, err := DetectHeader(header[:n])
	if errors.Is(err, errShortHeader) {
		return KindUnknown, nil
	}
	return kind, err
}

// PeekTar reports whether the stream behind br starts with a tar header,
// without consuming it.
func PeekTar(br *bufio.Reader) (bool, error) {
	block, err := br.Peek(HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return false, err
	}
	return IsTarHeader(block), nil
}

// Package upload turns uploaded files into self-contained data URIs that are
// stored directly in the site document.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MB = 1 << 20

	DefaultImageLimit      = 5 * MB
	DefaultBackgroundLimit = 10 * MB
	DefaultMediaLimit      = 20 * MB
)

var (
	// ErrNoFile is returned when the request carries no file part.
	ErrNoFile = errors.New("no file uploaded")
	// ErrTooLarge is returned when the payload exceeds the limit for its field.
	ErrTooLarge = errors.New("file too large")
)

// File is an uploaded payload after encoding.
type File struct {
	Name      string
	MediaType string
	Size      int64
	URI       string
}

// Encode produces data:<mediaType>;base64,<payload>.
func Encode(data []byte, mediaType string) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// Decode splits a data URI produced by Encode back into payload and media type.
func Decode(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data uri without payload")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data uri is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("data uri payload: %w", err)
	}
	return data, mediaType, nil
}

// MediaType picks the declared type, sniffing the content when the declared
// one is empty or generic.
func MediaType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	sniffed, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return sniffed
}

// FromFileHeader reads an uploaded part, enforces limit and encodes it.
func FromFileHeader(fh *multipart.FileHeader, limit int64) (*File, error) {
	if fh == nil {
		return nil, ErrNoFile
	}
	if limit > 0 && fh.Size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, fh.Size, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return FromReader(f, fh.Filename, fh.Header.Get("Content-Type"), limit)
}

// FromReader encodes at most limit bytes from r.
func FromReader(r io.Reader, name, declared string, limit int64) (*File, error) {
	if r == nil {
		return nil, ErrNoFile
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, limit)
	}
	mt := MediaType(declared, data)
	return &File{
		Name:      name,
		MediaType: mt,
		Size:      int64(len(data)),
		URI:       Encode(data, mt),
	}, nil
}

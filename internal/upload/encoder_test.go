package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngBytes returns a PNG signature followed by n-8 filler bytes.
func pngBytes(n int) []byte {
	b := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	for len(b) < n {
		b = append(b, byte(len(b)))
	}
	return b[:n]
}

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	fhs := req.MultipartForm.File["file"]
	require.Len(t, fhs, 1)
	return fhs[0]
}

func TestEncodePNGRoundTrip(t *testing.T) {
	for _, n := range []int{16, 1000, 4097} {
		data := pngBytes(n)
		uri := Encode(data, "image/png")
		require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

		decoded, mt, err := Decode(uri)
		require.NoError(t, err)
		require.Equal(t, "image/png", mt)
		require.Len(t, decoded, n)
		require.Equal(t, data, decoded)
	}
}

func TestFromFileHeader(t *testing.T) {
	data := pngBytes(2048)
	f, err := FromFileHeader(fileHeader(t, "cover.png", "image/png", data), DefaultImageLimit)
	require.NoError(t, err)
	require.Equal(t, "cover.png", f.Name)
	require.Equal(t, "image/png", f.MediaType)
	require.EqualValues(t, 2048, f.Size)

	decoded, _, err := Decode(f.URI)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestFromFileHeaderSniffsGenericType(t *testing.T) {
	f, err := FromFileHeader(fileHeader(t, "blob", "application/octet-stream", pngBytes(64)), DefaultImageLimit)
	require.NoError(t, err)
	require.Equal(t, "image/png", f.MediaType)
	require.True(t, strings.HasPrefix(f.URI, "data:image/png;base64,"))
}

func TestFromFileHeaderErrors(t *testing.T) {
	_, err := FromFileHeader(nil, DefaultImageLimit)
	require.ErrorIs(t, err, ErrNoFile)

	_, err = FromFileHeader(fileHeader(t, "big.png", "image/png", pngBytes(100)), 50)
	require.True(t, errors.Is(err, ErrTooLarge))

	_, err = FromReader(bytes.NewReader(pngBytes(100)), "big.png", "image/png", 99)
	require.ErrorIs(t, err, ErrTooLarge)

	f, err := FromReader(bytes.NewReader(pngBytes(100)), "ok.png", "image/png", 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, f.Size)
}

func TestMediaTypeKeepsDeclared(t *testing.T) {
	require.Equal(t, "audio/mpeg", MediaType("audio/mpeg", []byte("not really mp3")))
	require.Equal(t, "text/plain", MediaType("", []byte("hello world")))
}

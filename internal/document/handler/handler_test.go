package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/document/repository"
	"github.com/folio/folio/backend/go-services/internal/document/service"
	"github.com/folio/folio/backend/go-services/internal/upload"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestServer(t *testing.T, limits Limits, guard ...gin.HandlerFunc) (*gin.Engine, *service.Store) {
	t.Helper()
	store := service.NewStore(repository.NewMemoryTarget(), service.Options{})
	t.Cleanup(store.Wait)
	g := gin.New()
	RegisterContentRoutes(g.Group("/api"), store, limits, guard...)
	return g, store
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, path string, values map[string]string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(g *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetDataRedactsPassword(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())
	store.SetSetting(context.Background(), document.SettingAdminPassword, "hunter2")

	w := serve(g, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "hunter2")

	var doc document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, "#000000", doc.Settings["backgroundColor"])
	require.NotNil(t, doc.Media)
}

func TestUpdateSettingsMerges(t *testing.T) {
	g, _ := newTestServer(t, DefaultLimits())

	w := serve(g, jsonRequest(http.MethodPost, "/api/settings", `{"email":"me@example.com","backgroundColor":"#123456"}`))
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(g, jsonRequest(http.MethodPost, "/api/settings", `{"backgroundColor":"#abcdef"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	require.Equal(t, "#abcdef", settings["backgroundColor"])
	require.Equal(t, "me@example.com", settings["email"])
	require.Equal(t, true, settings["particlesEnabled"])

	w = serve(g, jsonRequest(http.MethodPost, "/api/settings", `["not","an","object"]`))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateListDeleteItems(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		w := serve(g, jsonRequest(http.MethodPost, "/api/projects", `{"title":"`+title+`","link":"https://example.com"}`))
		require.Equal(t, http.StatusOK, w.Code)
		var item document.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
		require.Equal(t, title, item["title"])
		require.NotEmpty(t, item.ID())
		ids = append(ids, item.ID())
	}

	projects := store.Load(context.Background()).Projects
	require.Len(t, projects, 3)
	require.Equal(t, "first", projects[0]["title"])
	require.Equal(t, "third", projects[2]["title"])

	// unknown id is a successful no-op
	w := serve(g, httptest.NewRequest(http.MethodDelete, "/api/projects/123", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"success":true`)
	require.Len(t, store.Load(context.Background()).Projects, 3)

	w = serve(g, httptest.NewRequest(http.MethodDelete, "/api/projects/"+ids[1], nil))
	require.Equal(t, http.StatusOK, w.Code)
	projects = store.Load(context.Background()).Projects
	require.Len(t, projects, 2)
	require.Equal(t, ids[0], projects[0].ID())
	require.Equal(t, ids[2], projects[1].ID())
}

func TestCreateItemMultipartWithIcon(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())
	req := multipartRequest(t, "/api/tools",
		map[string]string{"name": "Go", "description": "language"},
		part{field: "icon", filename: "go.png", contentType: "image/png", data: pngHeader},
	)
	w := serve(g, req)
	require.Equal(t, http.StatusOK, w.Code)

	tools := store.Load(context.Background()).Tools
	require.Len(t, tools, 1)
	require.Equal(t, "Go", tools[0]["name"])
	require.True(t, strings.HasPrefix(tools[0]["iconUrl"].(string), "data:image/png;base64,"))
}

func TestCreateCertificateWithImage(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())
	req := multipartRequest(t, "/api/certificates",
		map[string]string{"title": "Cloud cert"},
		part{field: "image", filename: "cert.png", contentType: "image/png", data: pngHeader},
	)
	require.Equal(t, http.StatusOK, serve(g, req).Code)
	certs := store.Load(context.Background()).Certificates
	require.Len(t, certs, 1)
	require.Contains(t, certs[0]["imageUrl"], "data:image/png;base64,")
}

func TestUploadBackground(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())
	req := multipartRequest(t, "/api/upload/background", nil,
		part{field: "file", filename: "bg.png", contentType: "image/png", data: pngHeader})
	w := serve(g, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, mt, err := upload.Decode(resp["url"])
	require.NoError(t, err)
	require.Equal(t, "image/png", mt)
	require.Equal(t, pngHeader, data)
	require.Equal(t, resp["url"], store.Load(context.Background()).Settings[document.SettingBackgroundImage])
}

func TestUploadMediaCreatesItem(t *testing.T) {
	g, store := newTestServer(t, DefaultLimits())
	req := multipartRequest(t, "/api/upload/media",
		map[string]string{"description": "demo reel"},
		part{field: "file", filename: "reel.mp4", contentType: "video/mp4", data: []byte("fake video bytes")})
	w := serve(g, req)
	require.Equal(t, http.StatusOK, w.Code)

	media := store.Load(context.Background()).Media
	require.Len(t, media, 1)
	require.Equal(t, "video", media[0]["type"])
	require.Equal(t, "reel.mp4", media[0]["title"])
	require.Equal(t, "demo reel", media[0]["description"])
	require.Contains(t, media[0]["url"], "data:video/mp4;base64,")
}

func TestUploadErrors(t *testing.T) {
	g, _ := newTestServer(t, Limits{Image: 8, Background: 8, Media: 8})

	w := serve(g, multipartRequest(t, "/api/upload/background", map[string]string{"title": "x"}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(g, multipartRequest(t, "/api/upload/videoCover", nil,
		part{field: "file", filename: "big.png", contentType: "image/png", data: pngHeader}))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(g, multipartRequest(t, "/api/upload/nowhere", nil,
		part{field: "file", filename: "a.png", contentType: "image/png", data: pngHeader}))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateItemOversizedBody(t *testing.T) {
	g, store := newTestServer(t, Limits{Image: 8, Background: 8, Media: 8})
	big := bytes.Repeat([]byte("x"), multipartOverhead+64)
	req := multipartRequest(t, "/api/projects",
		map[string]string{"title": "huge"},
		part{field: "image", filename: "big.png", contentType: "image/png", data: big})

	w := serve(g, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Empty(t, store.Load(context.Background()).Projects)
}

func TestGuardProtectsWrites(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "nope"}) }
	g, _ := newTestServer(t, DefaultLimits(), deny)

	require.Equal(t, http.StatusOK, serve(g, httptest.NewRequest(http.MethodGet, "/api/data", nil)).Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, jsonRequest(http.MethodPost, "/api/settings", `{}`)).Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, httptest.NewRequest(http.MethodDelete, "/api/media/1", nil)).Code)
}

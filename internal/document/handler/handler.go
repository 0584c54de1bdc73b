package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/document/service"
	"github.com/folio/folio/backend/go-services/internal/upload"
)

// Limits bounds upload sizes per field family.
type Limits struct {
	Image      int64
	Background int64
	Media      int64
}

// DefaultLimits are 5 MB for covers and icons, 10 MB for the background and
// 20 MB for music and media.
func DefaultLimits() Limits {
	return Limits{Image: upload.DefaultImageLimit, Background: upload.DefaultBackgroundLimit, Media: upload.DefaultMediaLimit}
}

// uploadTarget describes where POST /upload/:target stores its data URI.
type uploadTarget struct {
	setting string
	limit   func(Limits) int64
}

var uploadTargets = map[string]uploadTarget{
	"background":    {setting: document.SettingBackgroundImage, limit: func(l Limits) int64 { return l.Background }},
	"music":         {setting: document.SettingBackgroundMusic, limit: func(l Limits) int64 { return l.Media }},
	"certCover":     {setting: "certCover", limit: func(l Limits) int64 { return l.Image }},
	"videoCover":    {setting: "videoCover", limit: func(l Limits) int64 { return l.Image }},
	"workflowCover": {setting: "workflowCover", limit: func(l Limits) int64 { return l.Image }},
	"media":         {limit: func(l Limits) int64 { return l.Media }},
}

// itemFileFields maps multipart file parts on item creation to item keys.
var itemFileFields = map[string]string{
	"icon":  "iconUrl",
	"image": "imageUrl",
	"cover": "coverUrl",
}

const multipartOverhead = 1 << 20

type contentHandler struct {
	store  *service.Store
	limits Limits
}

// RegisterContentRoutes mounts the document API on api. guard, when given,
// runs in front of every mutating route.
func RegisterContentRoutes(api *gin.RouterGroup, store *service.Store, limits Limits, guard ...gin.HandlerFunc) {
	h := &contentHandler{store: store, limits: limits}

	api.GET("/data", h.getData)

	w := api.Group("", guard...)
	w.POST("/settings", h.updateSettings)
	w.POST("/upload/:target", h.upload)
	// one route per collection keeps these clear of /upload and /settings
	for _, c := range document.Collections {
		c := c
		w.POST("/"+string(c), func(ctx *gin.Context) { h.createItem(ctx, c) })
		w.DELETE("/"+string(c)+"/:id", func(ctx *gin.Context) { h.deleteItem(ctx, c) })
	}
}

func (h *contentHandler) getData(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Load(c.Request.Context()).Redacted())
}

func (h *contentHandler) updateSettings(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settings must be a JSON object"})
		return
	}
	merged := h.store.UpdateSettings(c.Request.Context(), patch)
	delete(merged, document.SettingAdminPassword)
	c.JSON(http.StatusOK, merged)
}

func (h *contentHandler) upload(c *gin.Context) {
	name := c.Param("target")
	target, ok := uploadTargets[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload target " + name})
		return
	}
	limit := target.limit(h.limits)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		fh = nil
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeUploadError(c, upload.ErrTooLarge)
			return
		}
	}
	f, err := upload.FromFileHeader(fh, limit)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	ctx := c.Request.Context()
	if target.setting != "" {
		h.store.SetSetting(ctx, target.setting, f.URI)
		c.JSON(http.StatusOK, gin.H{"url": f.URI})
		return
	}

	kind := c.PostForm("type")
	if kind == "" {
		kind = "image"
		if strings.HasPrefix(f.MediaType, "video/") {
			kind = "video"
		}
	}
	title := c.PostForm("title")
	if title == "" {
		title = f.Name
	}
	item := h.store.AddItem(ctx, document.Media, map[string]interface{}{
		"type":        kind,
		"url":         f.URI,
		"title":       title,
		"description": c.PostForm("description"),
		"link":        c.PostForm("link"),
	})
	c.JSON(http.StatusOK, item)
}

func (h *contentHandler) createItem(c *gin.Context, col document.Collection) {
	fields := map[string]interface{}{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.Media+multipartOverhead)
		form, err := c.MultipartForm()
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeUploadError(c, upload.ErrTooLarge)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}
		for k, vs := range form.Value {
			if len(vs) > 0 {
				fields[k] = vs[0]
			}
		}
		for part, key := range itemFileFields {
			fh := firstFile(form, part)
			if fh == nil {
				continue
			}
			f, err := upload.FromFileHeader(fh, h.limits.Image)
			if err != nil {
				writeUploadError(c, err)
				return
			}
			fields[key] = f.URI
		}
	} else if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item must be a JSON object"})
		return
	}
	item := h.store.AddItem(c.Request.Context(), col, fields)
	c.JSON(http.StatusOK, item)
}

func (h *contentHandler) deleteItem(c *gin.Context, col document.Collection) {
	removed := h.store.DeleteItem(c.Request.Context(), col, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func firstFile(form *multipart.Form, name string) *multipart.FileHeader {
	if fhs := form.File[name]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrNoFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
	case errors.Is(err, upload.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

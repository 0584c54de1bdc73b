package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio/folio/backend/go-services/internal/deploy"
)

// Deployer runs the publish workflow.
type Deployer interface {
	Run(ctx context.Context, proxy string) (*deploy.Report, error)
}

type deployRequest struct {
	Proxy string `json:"proxy"`
}

// DeployHandler exposes POST /deploy. The workflow only has work to do when
// the document lives in a local file; other modes get a notice.
type DeployHandler struct {
	deployer  Deployer
	mode      string
	localSync bool
}

func NewDeployHandler(d Deployer, mode string, localSync bool) *DeployHandler {
	return &DeployHandler{deployer: d, mode: mode, localSync: localSync}
}

func (h *DeployHandler) Register(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	rg.POST("/deploy", append(guard, h.Deploy)...)
}

func (h *DeployHandler) Deploy(c *gin.Context) {
	if !h.localSync {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"skipped": true,
			"message": "storage mode " + h.mode + " already persists remotely; nothing to deploy",
		})
		return
	}
	var req deployRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
			return
		}
	}

	// the push loop runs to completion even if the client goes away
	rep, err := h.deployer.Run(context.WithoutCancel(c.Request.Context()), req.Proxy)
	if err != nil {
		status := http.StatusInternalServerError
		body := gin.H{"success": false, "error": err.Error()}
		var de *deploy.Error
		if errors.As(err, &de) {
			body["error"] = de.Message()
			body["details"] = de.Output
			body["kind"] = de.Kind
			if de.Kind == deploy.KindConflict {
				status = http.StatusConflict
			}
		}
		if rep != nil {
			body["attempts"] = rep.Attempts
		}
		c.JSON(status, body)
		return
	}

	msg := "Changes pushed"
	if !rep.Committed {
		msg = "Nothing new to commit; remote is up to date"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  msg,
		"commit":   rep.Commit,
		"attempts": rep.Attempts,
	})
}

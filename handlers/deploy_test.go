package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/backend/go-services/internal/deploy"
)

type fakeDeployer struct {
	rep   *deploy.Report
	err   error
	calls int
	proxy string
}

func (f *fakeDeployer) Run(ctx context.Context, proxy string) (*deploy.Report, error) {
	f.calls++
	f.proxy = proxy
	return f.rep, f.err
}

func deployRouter(h *DeployHandler) *gin.Engine {
	g := gin.New()
	h.Register(g.Group("/api"))
	return g
}

func decode(t *testing.T, b []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestDeploy_Success(t *testing.T) {
	fd := &fakeDeployer{rep: &deploy.Report{Committed: true, Attempts: 3, Commit: "abc123"}}
	g := deployRouter(NewDeployHandler(fd, "file", true))

	w := postJSON(g, "/api/deploy", `{"proxy":"http://127.0.0.1:7890"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w.Body.Bytes())
	require.Equal(t, true, body["success"])
	require.Equal(t, "abc123", body["commit"])
	require.EqualValues(t, 3, body["attempts"])
	require.Equal(t, "http://127.0.0.1:7890", fd.proxy)
}

func TestDeploy_SkippedOutsideFileMode(t *testing.T) {
	fd := &fakeDeployer{}
	g := deployRouter(NewDeployHandler(fd, "github", false))

	w := postJSON(g, "/api/deploy", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w.Body.Bytes())
	require.Equal(t, true, body["success"])
	require.Equal(t, true, body["skipped"])
	require.Equal(t, 0, fd.calls)
}

func TestDeploy_ConflictIs409(t *testing.T) {
	fd := &fakeDeployer{err: &deploy.Error{Kind: deploy.KindConflict, Step: "pull", Output: "CONFLICT (content)"}}
	w := postJSON(deployRouter(NewDeployHandler(fd, "file", true)), "/api/deploy", `{}`)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w.Body.Bytes())
	require.Equal(t, false, body["success"])
	require.Equal(t, "CONFLICT (content)", body["details"])
}

func TestDeploy_NetworkFailureMentionsProxy(t *testing.T) {
	fd := &fakeDeployer{
		rep: &deploy.Report{Attempts: 3},
		err: &deploy.Error{Kind: deploy.KindNetwork, Step: "push", Output: "Connection refused"},
	}
	w := postJSON(deployRouter(NewDeployHandler(fd, "file", true)), "/api/deploy", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w.Body.Bytes())
	require.Contains(t, body["error"], "proxy")
	require.EqualValues(t, 3, body["attempts"])
}

// Package statusapi is an optional Gin-based admin surface pairing the
// agent's background worker, grounded on the teacher's fres/ response
// helpers. It is not part of the agent's required operations (§6.1) — an
// embedder that doesn't want an HTTP surface never needs to import this
// package.
package statusapi

import (
	"net/http"
	"time"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	golangcarbon "github.com/golang-module/carbon"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

const (
	statusOK          = 0
	statusInternalErr = 10500
)

type okResponse struct {
	Code   int         `json:"code"`
	Msg    string      `json:"msg"`
	Result interface{} `json:"result,omitempty"`
}

type errResponse struct {
	Code   int    `json:"code"`
	ErrMsg string `json:"err_msg"`
}

func okJSON(c *gin.Context, msg string, result interface{}) {
	c.JSON(http.StatusOK, okResponse{Code: statusOK, Msg: msg, Result: result})
}

func errJSON(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, errResponse{Code: statusInternalErr, ErrMsg: err.Error()})
}

// StatusView is the JSON shape returned by GET /status.
type StatusView struct {
	UUID               string `json:"uuid"`
	AdvertisedHostName string `json:"advertised_host_name"`
	LastHeartbeat       string `json:"last_heartbeat"`
	LastHeartbeatAgo    string `json:"last_heartbeat_ago"`
}

// Server wraps an *heartbeat.Agent with a small Gin router exposing its
// observable state. It deduplicates concurrent GET /status calls with
// singleflight, adapted from the teacher's singleflight.go, since nothing
// is gained by recomputing the same snapshot twice within a tick.
type Server struct {
	agent *heartbeat.Agent
	group singleflight.Group
}

func New(agent *heartbeat.Agent) *Server {
	return &Server{agent: agent}
}

// Register mounts the status routes on engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.GET("/status", s.handleStatus)
	engine.POST("/renew", s.handleRenew)
}

func (s *Server) handleStatus(c *gin.Context) {
	v, err, _ := s.group.Do("status", func() (interface{}, error) {
		return s.snapshot(), nil
	})
	if err != nil {
		errJSON(c, err)
		return
	}
	okJSON(c, "ok", v)
}

func (s *Server) snapshot() StatusView {
	last := s.agent.GetLastHeartbeat()
	view := StatusView{
		UUID:               s.agent.UUID(),
		AdvertisedHostName: s.agent.GetAdvertisedHostName(),
	}
	if last.IsZero() {
		view.LastHeartbeat = ""
		view.LastHeartbeatAgo = "never"
		return view
	}
	view.LastHeartbeat = last.Format(time.RFC3339)
	view.LastHeartbeatAgo = golangcarbon.CreateFromStdTime(last).DiffForHumans()
	return view
}

func (s *Server) handleRenew(c *gin.Context) {
	s.agent.RenewAddressMappings()
	okJSON(c, "renewal requested", nil)
}

package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/craftpanel/internal/panel"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/settings"
)

func (s *Server) handleStatus(c *gin.Context) {
	st, err := s.panel.Status(c.Request.Context())
	if err != nil {
		writeError(c, err, "status unavailable")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleInfo(c *gin.Context) {
	info, err := s.panel.Info(c.Request.Context())
	if err != nil {
		writeError(c, err, "info unavailable")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleSetupStatus(c *gin.Context) {
	st, err := s.panel.SetupStatus()
	if err != nil {
		writeError(c, err, "setup status unavailable")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleVersions(c *gin.Context) {
	list, err := s.panel.Versions(c.Request.Context(), c.Query("type"))
	if err != nil {
		writeError(c, err, "Failed to fetch versions")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleBuilds(c *gin.Context) {
	builds, err := s.panel.Builds(c.Request.Context(), c.Query("type"), c.Query("version"))
	if err != nil {
		writeError(c, err, "Failed to fetch builds")
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": builds})
}

func (s *Server) handleInstall(c *gin.Context) {
	var body struct {
		Type       string          `json:"type"`
		Version    string          `json:"version"`
		Build      json.RawMessage `json:"build"`
		AcceptEULA bool            `json:"acceptEula"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	err := s.panel.Install(c.Request.Context(), panel.InstallRequest{
		Type:       body.Type,
		Version:    body.Version,
		Build:      scalarString(body.Build),
		AcceptEULA: body.AcceptEULA,
	})
	if err != nil {
		writeError(c, err, "Download failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.panel.DeleteServerData(c.Request.Context()); err != nil {
		writeError(c, err, "Delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	view, err := s.panel.Config()
	if err != nil {
		writeError(c, err, "config unavailable")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var body struct {
		App        *settings.Patch            `json:"app"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	u := panel.ConfigUpdate{App: body.App}
	if body.Properties != nil {
		u.Properties = make(map[string]string, len(body.Properties))
		for k, v := range body.Properties {
			u.Properties[k] = scalarString(v)
		}
	}
	if err := s.panel.UpdateConfig(u); err != nil {
		writeError(c, err, "config update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleGetLists(c *gin.Context) {
	lists, err := s.panel.Lists()
	if err != nil {
		writeError(c, err, "lists unavailable")
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) handleSetLists(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	lists := make(map[serverdir.ListKind]json.RawMessage)
	for _, kind := range serverdir.ListKinds {
		raw, ok := body[string(kind)]
		if !ok || isNull(raw) {
			continue
		}
		lists[kind] = raw
	}
	if err := s.panel.SetLists(lists); err != nil {
		writeError(c, err, "lists update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleUUID(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		badRequest(c, "name required")
		return
	}
	id, err := s.panel.UUID(c.Request.Context(), name)
	if err != nil {
		writeError(c, err, "lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"uuid": id})
}

func (s *Server) handleStart(c *gin.Context) {
	res, err := s.panel.Start(c.Request.Context())
	if err != nil {
		writeError(c, err, "start failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "running": true, "alreadyRunning": res.AlreadyRunning, "pid": res.PID})
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.panel.Stop(c.Request.Context()); err != nil {
		writeError(c, err, "stop failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "running": false})
}

func (s *Server) handleCommand(c *gin.Context) {
	var body struct {
		Command string `json:"command"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "command required")
		return
	}
	if err := s.panel.SendCommand(c.Request.Context(), body.Command); err != nil {
		writeError(c, err, "Command failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDiskLogs(c *gin.Context) {
	lines, err := s.panel.DiskLogs()
	if err != nil {
		writeError(c, err, "logs unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

func (s *Server) handleConsole(c *gin.Context) {
	lines, err := s.panel.RecentLines(c.Request.Context())
	if err != nil {
		writeError(c, err, "console unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

func (s *Server) handleHistory(c *gin.Context) {
	runs, err := s.panel.History(queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err, "history unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunCommands(c *gin.Context) {
	cmds, err := s.panel.RunCommands(c.Param("id"), queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err, "history unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": cmds})
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// scalarString renders a JSON scalar the way it would be written in a
// properties file: strings unquoted, numbers and booleans verbatim, null as
// empty.
func scalarString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(bytes.TrimSpace(raw))
}

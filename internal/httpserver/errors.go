package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/lookup"
	"github.com/tinytelemetry/craftpanel/internal/panel"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

// Machine-readable error codes returned alongside the message.
const (
	CodeJarMissing      = "JAR_MISSING"
	CodeEULARequired    = "EULA_REQUIRED"
	CodeNotRunning      = "NOT_RUNNING"
	CodeCommandFailed   = "COMMAND_FAILED"
	CodeUnsafeDelete    = "UNSAFE_DELETE"
	CodeSpawnFailed     = "SPAWN_FAILED"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeHistoryDisabled = "HISTORY_DISABLED"
	CodeInternal        = "INTERNAL"
)

type apiError struct {
	status  int
	code    string
	message string
}

var errorTable = []struct {
	target error
	apiError
}{
	{supervisor.ErrExecutableMissing, apiError{http.StatusBadRequest, CodeJarMissing, "server.jar not found"}},
	{supervisor.ErrLicenseRequired, apiError{http.StatusBadRequest, CodeEULARequired, "EULA not accepted"}},
	{supervisor.ErrNotRunning, apiError{http.StatusBadRequest, CodeNotRunning, "Server not running"}},
	{supervisor.ErrCommandFailed, apiError{http.StatusInternalServerError, CodeCommandFailed, "Command failed"}},
	{supervisor.ErrSpawnFailed, apiError{http.StatusInternalServerError, CodeSpawnFailed, "Server failed to start"}},
	{panel.ErrUnsafeDelete, apiError{http.StatusBadRequest, CodeUnsafeDelete, "Unsafe delete path"}},
	{panel.ErrEmptyCommand, apiError{http.StatusBadRequest, CodeInvalidRequest, "command required"}},
	{panel.ErrHistoryDisabled, apiError{http.StatusNotFound, CodeHistoryDisabled, "run history disabled"}},
	{distribution.ErrUnknownType, apiError{http.StatusBadRequest, CodeInvalidRequest, "Unknown server type"}},
	{distribution.ErrBuildsUnsupported, apiError{http.StatusBadRequest, CodeInvalidRequest, "Builds only for paper"}},
	{distribution.ErrVersionNotFound, apiError{http.StatusBadRequest, CodeInvalidRequest, "Version not found"}},
	{distribution.ErrDownloadNotFound, apiError{http.StatusBadRequest, CodeInvalidRequest, "Download URL not found"}},
	{lookup.ErrProfileNotFound, apiError{http.StatusNotFound, CodeNotFound, "not found"}},
	{serverdir.ErrPropertiesMissing, apiError{http.StatusBadRequest, CodeInvalidRequest, "server.properties not found"}},
	{serverdir.ErrNotArray, apiError{http.StatusBadRequest, CodeInvalidRequest, "Invalid list format (must be JSON array)"}},
}

// classify maps err to its HTTP form. Unknown errors become a 500 with
// fallback as the message.
func classify(err error, fallback string) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.apiError
		}
	}
	if errors.Is(err, panel.ErrInvalidRequest) {
		return apiError{http.StatusBadRequest, CodeInvalidRequest, err.Error()}
	}
	return apiError{http.StatusInternalServerError, CodeInternal, fallback}
}

func writeError(c *gin.Context, err error, fallback string) {
	e := classify(err, fallback)
	if e.status >= http.StatusInternalServerError {
		log.Printf("httpserver: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(e.status, gin.H{"error": e.message, "code": e.code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": CodeInvalidRequest})
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/launchboard/internal/admin"
	"github.com/MarcoPoloResearchLab/launchboard/internal/appconfig"
	"github.com/MarcoPoloResearchLab/launchboard/internal/audit"
	"github.com/MarcoPoloResearchLab/launchboard/internal/insights"
	"github.com/MarcoPoloResearchLab/launchboard/internal/shortcuts"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errMissingShortcutsService = errors.New("shortcuts service dependency required")
	errMissingConfigService    = errors.New("app config service dependency required")
	errMissingAdminService     = errors.New("admin service dependency required")
)

const heartbeatInterval = 25 * time.Second

// Dependencies wires the HTTP surface to the domain services.
type Dependencies struct {
	Shortcuts *shortcuts.Service
	Config    *appconfig.Service
	Insights  *insights.Service
	Admin     *admin.Service
	Audit     *audit.Service
	Realtime  *RealtimeDispatcher
	Logger    *zap.Logger
	StaticDir string
}

// NewHTTPHandler builds the gin router serving the API and the SPA bundle.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Shortcuts == nil {
		return nil, errMissingShortcutsService
	}
	if deps.Config == nil {
		return nil, errMissingConfigService
	}
	if deps.Admin == nil {
		return nil, errMissingAdminService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		shortcuts: deps.Shortcuts,
		config:    deps.Config,
		insights:  deps.Insights,
		admin:     deps.Admin,
		audit:     deps.Audit,
		realtime:  deps.Realtime,
		logger:    logger,
	}

	api := router.Group("/api")
	api.POST("/login", handler.handleLogin)
	api.GET("/data", handler.handleData)
	api.POST("/shortcuts", handler.handleCreateShortcut)
	api.PUT("/shortcuts/:id", handler.handleUpdateShortcut)
	api.DELETE("/shortcuts/:id", handler.handleDeleteShortcut)
	api.POST("/click/:id", handler.handleClick)
	api.POST("/favorite/:id", handler.handleFavorite)
	api.POST("/reorder", handler.handleReorder)
	api.POST("/import", handler.handleImport)
	api.GET("/export", handler.handleExport)
	api.POST("/config", handler.handleConfigSave)
	api.POST("/config/force", handler.handleConfigForce)
	api.GET("/insights", handler.handleInsights)
	api.GET("/insights/export", handler.handleInsightsExport)
	api.GET("/insights/export/summary", handler.handleInsightsExportSummary)
	api.POST("/image-search/log", handler.handleImageSearchLog)
	api.GET("/events", handler.handleEvents)
	api.GET("/health", handler.handleHealth)

	router.NoRoute(spaFallback(deps.StaticDir))

	return router, nil
}

type httpHandler struct {
	shortcuts *shortcuts.Service
	config    *appconfig.Service
	insights  *insights.Service
	admin     *admin.Service
	audit     *audit.Service
	realtime  *RealtimeDispatcher
	logger    *zap.Logger
}

// requestLogger emits one structured line per request with a minted id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		c.Next()

		logger.Info("http_request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_ip", c.ClientIP()),
		)
	}
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	role, err := h.admin.Authenticate(c.Request.Context(), request.Username, request.Password)
	if errors.Is(err, admin.ErrAuthFailed) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Auth failed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "role": role})
}

func (h *httpHandler) handleData(c *gin.Context) {
	tenant := shortcuts.NormalizeTenant(c.Query("tenant"))

	snapshot, err := h.shortcuts.FetchData(c.Request.Context(), tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch_failed"})
		return
	}

	config, err := h.config.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":      snapshot.Tenant,
		"shortcuts":   snapshot.Shortcuts,
		"labelColors": snapshot.LabelColors,
		"appConfig":   config,
	})
}

func (h *httpHandler) handleCreateShortcut(c *gin.Context) {
	var payload shortcuts.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	rec, err := shortcuts.Normalize(payload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.shortcuts.Upsert(c.Request.Context(), rec)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.publishDataChange(rec.Tenant.String())
	c.JSON(http.StatusOK, gin.H{"success": true, "created": result.Created})
}

func (h *httpHandler) handleUpdateShortcut(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload shortcuts.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	rec, err := shortcuts.Normalize(payload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.shortcuts.Update(c.Request.Context(), id, rec); err != nil {
		h.respondError(c, err)
		return
	}

	h.publishDataChange(rec.Tenant.String())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleDeleteShortcut(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.shortcuts.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishDataChange("")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleClick(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.shortcuts.RecordClick(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleFavorite(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	favorite, err := h.shortcuts.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorite": favorite})
}

type reorderPayload struct {
	Tenant string  `json:"tenant"`
	Order  []int64 `json:"order"`
}

func (h *httpHandler) handleReorder(c *gin.Context) {
	var request reorderPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Order == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order"})
		return
	}

	tenant := shortcuts.NormalizeTenant(request.Tenant)
	if err := h.shortcuts.Reorder(c.Request.Context(), tenant, request.Order); err != nil {
		h.respondError(c, err)
		return
	}

	h.publishDataChange(tenant.String())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type importPayload struct {
	Tenant    string                     `json:"tenant"`
	Shortcuts []shortcuts.ImportShortcut `json:"shortcuts"`
	Labels    []shortcuts.ImportLabel    `json:"labels"`
}

func (h *httpHandler) handleImport(c *gin.Context) {
	var request importPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	tenant := shortcuts.NormalizeTenant(request.Tenant)
	if err := h.shortcuts.ImportBatch(c.Request.Context(), tenant, request.Shortcuts, request.Labels); err != nil {
		h.respondError(c, err)
		return
	}

	h.publishDataChange("")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	tenant := shortcuts.NormalizeTenant(c.Query("tenant"))
	snapshot, err := h.shortcuts.Export(c.Request.Context(), tenant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *httpHandler) handleConfigSave(c *gin.Context) {
	values, ok := bindConfigValues(c)
	if !ok {
		return
	}
	if err := h.config.Save(c.Request.Context(), values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "config_save_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleConfigForce(c *gin.Context) {
	values, ok := bindConfigValues(c)
	if !ok {
		return
	}
	version, err := h.config.ForceSync(c.Request.Context(), values)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "config_sync_failed"})
		return
	}

	if h.realtime != nil {
		h.realtime.Broadcast(RealtimeMessage{
			EventType:     RealtimeEventConfigSync,
			ConfigVersion: version,
			Timestamp:     time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "version": version})
}

func (h *httpHandler) handleInsights(c *gin.Context) {
	if h.insights == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "insights_disabled"})
		return
	}
	overview, err := h.insights.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insights_failed"})
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *httpHandler) handleInsightsExport(c *gin.Context) {
	h.streamCSV(c, "insights_full", h.insights.ExportCSV)
}

func (h *httpHandler) handleInsightsExportSummary(c *gin.Context) {
	h.streamCSV(c, "insights_summary", h.insights.ExportSummaryCSV)
}

func (h *httpHandler) streamCSV(c *gin.Context, prefix string, export func(ctx context.Context, w io.Writer) error) {
	if h.insights == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "insights_disabled"})
		return
	}
	filename := fmt.Sprintf("%s_%s.csv", prefix, time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export(c.Request.Context(), c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

type imageSearchPayload struct {
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
	Filename string `json:"filename"`
}

func (h *httpHandler) handleImageSearchLog(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	var request imageSearchPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	entry := audit.ImageSearchLog{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		FileSize:  request.FileSize,
		FileType:  request.FileType,
		Filename:  request.Filename,
	}
	if err := h.audit.Record(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleEvents streams realtime messages for a tenant over SSE so open
// dashboards can re-fetch after admin mutations and force syncs.
func (h *httpHandler) handleEvents(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "events_disabled"})
		return
	}

	tenant := shortcuts.NormalizeTenant(c.Query("tenant"))
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, tenant.String())
	defer cleanup()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, open := <-stream:
			if !open {
				return
			}
			writeSSE(c.Writer, message.EventType, fmt.Sprintf(
				`{"tenant":%q,"version":%d,"timestamp":%q}`,
				message.Tenant, message.ConfigVersion, message.Timestamp.UTC().Format(time.RFC3339)))
			c.Writer.Flush()
		case <-heartbeat.C:
			writeSSE(c.Writer, realtimeEventHeartbeat, `{}`)
			c.Writer.Flush()
		}
	}
}

func writeSSE(w io.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shortcuts.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
	case errors.Is(err, shortcuts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

// publishDataChange notifies subscribers of the tenant, or everyone when the
// touched tenants are not known to the handler (delete, import).
func (h *httpHandler) publishDataChange(tenant string) {
	if h.realtime == nil {
		return
	}
	message := RealtimeMessage{
		EventType: RealtimeEventDataChanged,
		Timestamp: time.Now().UTC(),
	}
	if tenant == "" {
		h.realtime.Broadcast(message)
		return
	}
	message.Tenant = tenant
	h.realtime.Publish(message)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

// bindConfigValues accepts the loosely typed config body and coerces every
// value to its stored string form.
func bindConfigValues(c *gin.Context) (map[string]string, bool) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return nil, false
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch typed := value.(type) {
		case string:
			values[key] = typed
		case bool:
			values[key] = strconv.FormatBool(typed)
		case float64:
			values[key] = strconv.FormatFloat(typed, 'f', -1, 64)
		case nil:
			values[key] = ""
		default:
			values[key] = fmt.Sprintf("%v", typed)
		}
	}
	return values, true
}

// validationMessage strips the sentinel prefix so the wire message matches
// the documented "missing name or url" / "invalid url" strings.
func validationMessage(err error) string {
	message := err.Error()
	if idx := strings.LastIndex(message, ": "); idx >= 0 {
		message = message[idx+2:]
	}
	return message
}

// spaFallback serves the compiled client bundle and falls back to index.html
// for any unmatched non-API path.
func spaFallback(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if staticDir == "" {
			c.String(http.StatusNotFound, "frontend bundle not configured")
			return
		}

		requested := filepath.Join(staticDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			c.File(requested)
			return
		}

		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusInternalServerError, "frontend bundle is not built")
			return
		}
		c.File(index)
	}
}

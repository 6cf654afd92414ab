package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aminestudio/internal/codeblock"
	"aminestudio/internal/gemini"
	"aminestudio/internal/models"
	"aminestudio/internal/scene"
	"aminestudio/internal/service/assistant"
	"aminestudio/internal/tracer"
	"aminestudio/internal/worker"
)

// Handler wires HTTP routes to the assistant service.
type Handler struct {
	assistant *assistant.Service
	logger    *zap.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(service *assistant.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{assistant: service, logger: logger}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)

	sessions := api.Group("/sessions")
	sessions.GET("", h.listSessions)
	sessions.POST("", h.createSession)
	sessions.GET("/:id", h.getSession)
	sessions.GET("/:id/messages", h.getSession)
	sessions.DELETE("/:id", h.deleteSession)
	sessions.PUT("/:id/title", h.renameSession)
	sessions.POST("/:id/reset", h.resetSession)
	sessions.POST("/:id/chat", h.chat)

	studio := api.Group("/studio")
	studio.POST("/lineart", h.refineLineArt)
	studio.POST("/render", h.renderVisualization)
	studio.POST("/model", h.generateModel)
	studio.POST("/dxf", h.exportDXF)
	studio.POST("/trace", h.startTrace)
	studio.GET("/trace/:job_id", h.getTraceJob)
	studio.GET("/trace/:job_id/download", h.downloadTrace)
}

// respondError maps service failures onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assistant.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a generation is already running for this session"})
	case errors.Is(err, worker.ErrQueueFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, scene.ErrInvalidScene):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid geometry data"})
	case gemini.IsKind(err, gemini.KindAuth):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend credentials missing or invalid"})
	case gemini.IsKind(err, gemini.KindQuota):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "backend quota exceeded, retry later"})
	case gemini.IsKind(err, gemini.KindMalformedInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case gemini.IsKind(err, gemini.KindMalformedResponse), gemini.IsKind(err, gemini.KindNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"generation_ready": h.assistant.Ready(),
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.assistant.ListSessions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	session, err := h.assistant.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) getSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	session, messages, err := h.assistant.GetSessionWithMessages(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "messages": messages})
}

func (h *Handler) deleteSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.assistant.DeleteSession(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

func (h *Handler) renameSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req renameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if err := h.assistant.UpdateSessionTitle(c.Request.Context(), id, req.Title); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.assistant.ResetSession(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type chatRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

func (h *Handler) chat(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Content == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or image is required"})
		return
	}
	userMsg, aiMsg, err := h.assistant.Chat(c.Request.Context(), id, req.Content, req.Image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := gin.H{"user_message": userMsg, "assistant_message": aiMsg}
	if aiMsg != nil {
		resp["segments"] = codeblock.Parse(aiMsg.Content, strconv.FormatInt(aiMsg.ID, 10))
	}
	c.JSON(http.StatusOK, resp)
}

type imageRequest struct {
	Image string `json:"image"`
}

func (h *Handler) parseImage(c *gin.Context, raw string) (*gemini.DataURI, bool) {
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return nil, false
	}
	img, err := gemini.ParseDataURI(raw)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return img, true
}

func (h *Handler) refineLineArt(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	img, ok := h.parseImage(c, req.Image)
	if !ok {
		return
	}
	refined, err := h.assistant.RefineLineArt(c.Request.Context(), img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if refined == nil {
		// No image in the reply; the caller keeps the original sketch.
		c.JSON(http.StatusOK, gin.H{"image": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": refined.String()})
}

type renderRequest struct {
	Image      string `json:"image"`
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
}

func (h *Handler) renderVisualization(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	img, ok := h.parseImage(c, req.Image)
	if !ok {
		return
	}
	if req.Resolution == "" {
		req.Resolution = "1K"
	}
	render, err := h.assistant.RenderVisualization(c.Request.Context(), img, req.Prompt, req.Resolution)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if render == nil {
		c.JSON(http.StatusOK, gin.H{"image": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": render.String()})
}

type modelRequest struct {
	Image       string `json:"image"`
	Description string `json:"description"`
}

func (h *Handler) generateModel(c *gin.Context) {
	var req modelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	img, ok := h.parseImage(c, req.Image)
	if !ok {
		return
	}
	built, err := h.assistant.GenerateModel(c.Request.Context(), img, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, built)
}

type dxfRequest struct {
	SVG string `json:"svg"`
}

func (h *Handler) exportDXF(c *gin.Context) {
	var req dxfRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SVG == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "svg is required"})
		return
	}
	dxf, err := h.assistant.ExportDXF(c.Request.Context(), req.SVG)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dxf":      dxf,
		"filename": fmt.Sprintf("plan_%d.dxf", time.Now().Unix()),
	})
}

type traceRequest struct {
	Image          string  `json:"image"`
	LineThreshold  float64 `json:"line_threshold"`
	CurveThreshold float64 `json:"curve_threshold"`
	NoiseFloor     int     `json:"noise_floor"`
	StrokeWidth    float64 `json:"stroke_width"`
}

func (h *Handler) startTrace(c *gin.Context) {
	var req traceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	img, ok := h.parseImage(c, req.Image)
	if !ok {
		return
	}
	opts := tracer.Options{
		LineThreshold:  req.LineThreshold,
		CurveThreshold: req.CurveThreshold,
		NoiseFloor:     req.NoiseFloor,
		StrokeWidth:    req.StrokeWidth,
	}
	jobID, err := h.assistant.StartTrace(c.Request.Context(), img, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (h *Handler) getTraceJob(c *gin.Context) {
	job, err := h.assistant.GetTraceJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := gin.H{"job": job}
	if job.SVG != "" {
		resp["filename"] = fmt.Sprintf("vector_plan_%d.svg", time.Now().Unix())
	}
	c.JSON(http.StatusOK, resp)
}

// downloadTrace serves a finished trace as an SVG attachment.
func (h *Handler) downloadTrace(c *gin.Context) {
	job, err := h.assistant.GetTraceJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if job.Status != models.TraceStatusDone {
		c.JSON(http.StatusConflict, gin.H{"error": "trace is not finished"})
		return
	}
	filename := fmt.Sprintf("vector_plan_%d.svg", time.Now().Unix())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "image/svg+xml", []byte(job.SVG))
}

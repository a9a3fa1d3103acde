package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cropmanager/internal/auth"
	"github.com/example/cropmanager/internal/classifier"
	"github.com/example/cropmanager/internal/store"
	"github.com/example/cropmanager/internal/usecase"
)

// MaxUploadSize caps scan uploads at 10MB.
const MaxUploadSize = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ModelStatus is the slice of the model manager the UI surface needs.
type ModelStatus interface {
	Status() (classifier.State, string)
}

// Handler bundles the dependencies behind the HTTP surface.
type Handler struct {
	store     *store.Store
	scans     *usecase.ScanService
	models    ModelStatus
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(st *store.Store, scans *usecase.ScanService, models ModelStatus, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		store:     st,
		scans:     scans,
		models:    models,
		jwtSecret: jwtSecret,
		logger:    logger.Named("handlers"),
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, h *Handler, authMiddleware gin.HandlerFunc) {
	router.GET("/health", h.health)
	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)

	protected := router.Group("/", authMiddleware)
	protected.POST("/scan", h.scan)
	protected.GET("/history", h.history)
	protected.GET("/inventory", h.listInventory)
	protected.POST("/inventory", h.addInventory)
	protected.DELETE("/inventory/:id", h.deleteInventory)
	protected.GET("/inventory/stats", h.summary)
}

func (h *Handler) health(c *gin.Context) {
	state, strategyName := h.models.Status()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model": gin.H{
			"state":    state,
			"strategy": strategyName,
		},
	})
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if err := h.store.Register(creds.Username, creds.Password); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"username": creds.Username})
}

func (h *Handler) login(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if err := h.store.Authenticate(creds.Username, creds.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login"})
		return
	}

	token, err := auth.IssueToken(h.jwtSecret, creds.Username, auth.DefaultTokenTTL)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "username": creds.Username})
}

func (h *Handler) scan(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		return
	}
	if contentType := file.Header.Get("Content-Type"); contentType != "" && !allowedImageTypes[contentType] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only JPEG and PNG images are supported"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	result, err := h.scans.Scan(username, file.Filename, data)
	if err != nil {
		h.renderScanError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// renderScanError maps the scan error taxonomy onto responses: recoverable
// errors become messages the UI shows as a dialog, a fatal model load keeps
// the scan surface blocked.
func (h *Handler) renderScanError(c *gin.Context, err error) {
	var fatal *classifier.FatalLoadError
	switch {
	case errors.Is(err, classifier.ErrModelLoading):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model is still loading, try again shortly"})
	case errors.As(err, &fatal):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scanner unavailable: classifier failed to load"})
	case errors.Is(err, classifier.ErrImageDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read that image, try another photo"})
	default:
		h.logger.Error("scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

func (h *Handler) history(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	entries, err := h.scans.History(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

type newItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	Quantity string `json:"qty"`
	Notes    string `json:"notes"`
}

func (h *Handler) listInventory(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	items, err := h.store.Inventory(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items})
}

func (h *Handler) addInventory(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	var req newItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and category are required"})
		return
	}

	item, err := h.store.AddItem(username, req.Name, req.Category, req.Quantity, req.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save item"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) deleteInventory(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	if err := h.store.DeleteItem(username, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) summary(c *gin.Context) {
	username, ok := auth.GetUsername(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	summary, err := h.scans.Summary(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

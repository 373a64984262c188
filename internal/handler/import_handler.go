package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/trade-importer/internal/importer"
	"github.com/trade-importer/internal/middleware"
	"github.com/trade-importer/internal/repository"
	"github.com/trade-importer/internal/service"
	"github.com/trade-importer/pkg/response"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the JWT middleware before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ImportHandler handles trade import API requests
type ImportHandler struct {
	importService *service.ImportService
	accountRepo   *repository.AccountRepository
	maxFileBytes  int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *service.ImportService, accountRepo *repository.AccountRepository, maxFileSizeMB int) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		accountRepo:   accountRepo,
		maxFileBytes:  int64(maxFileSizeMB) * 1024 * 1024,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	imports := rg.Group("/imports", authMiddleware)
	{
		imports.POST("/preview", h.Preview)
		imports.POST("", h.Execute)
		imports.GET("", h.ListSessions)
		imports.GET("/:reference", h.GetSession)
		imports.GET("/:reference/progress", h.GetProgress)
		imports.GET("/:reference/progress/ws", h.StreamProgress)
	}
}

// Preview runs the import pipeline without persisting anything
// POST /api/v1/imports/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	fileBytes, _, accountID, ok := h.readUpload(c)
	if !ok {
		return
	}

	summary, err := h.importService.PreviewImport(c.Request.Context(), fileBytes, middleware.GetUserID(c), accountID)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.Success(c, summary)
}

// Execute imports the file and commits accepted rows
// POST /api/v1/imports
func (h *ImportHandler) Execute(c *gin.Context) {
	fileBytes, fileName, accountID, ok := h.readUpload(c)
	if !ok {
		return
	}

	summary, err := h.importService.ExecuteImport(c.Request.Context(), fileBytes, fileName, middleware.GetUserID(c), accountID)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.Success(c, summary)
}

// ListSessions returns the user's import sessions
// GET /api/v1/imports
func (h *ImportHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sessions, total, err := h.importService.ListSessions(middleware.GetUserID(c), page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to list import sessions")
		return
	}

	response.SuccessPaginated(c, sessions, total, page, pageSize)
}

// GetSession returns one import session with its error and warning lists
// GET /api/v1/imports/:reference
func (h *ImportHandler) GetSession(c *gin.Context) {
	session, err := h.importService.GetSession(c.Param("reference"), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.NotFound(c, "import session not found")
			return
		}
		response.InternalError(c, "failed to load import session")
		return
	}
	response.Success(c, session)
}

// GetProgress returns the current progress counters for polling
// GET /api/v1/imports/:reference/progress
func (h *ImportHandler) GetProgress(c *gin.Context) {
	progress, err := h.importService.GetProgress(c.Request.Context(), c.Param("reference"), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.NotFound(c, "import session not found")
			return
		}
		response.InternalError(c, "failed to load progress")
		return
	}
	response.Success(c, progress)
}

// StreamProgress pushes progress snapshots over a websocket until the
// session reaches a terminal status
// GET /api/v1/imports/:reference/progress/ws
func (h *ImportHandler) StreamProgress(c *gin.Context) {
	reference := c.Param("reference")
	userID := middleware.GetUserID(c)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		progress, err := h.importService.GetProgress(c.Request.Context(), reference, userID)
		if err != nil {
			conn.WriteJSON(gin.H{"error": "session not found"})
			return
		}
		if err := conn.WriteJSON(progress); err != nil {
			return
		}
		if progress.Status.IsTerminal() {
			return
		}

		select {
		case <-ticker.C:
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readUpload extracts the uploaded file and the target account, verifying
// account ownership
func (h *ImportHandler) readUpload(c *gin.Context) ([]byte, string, uint, bool) {
	accountID, err := strconv.ParseUint(c.PostForm("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid or missing account_id")
		return nil, "", 0, false
	}

	if _, err := h.accountRepo.GetByIDAndUserID(uint(accountID), middleware.GetUserID(c)); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return nil, "", 0, false
		}
		response.InternalError(c, "failed to load account")
		return nil, "", 0, false
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file upload")
		return nil, "", 0, false
	}
	if fileHeader.Size > h.maxFileBytes {
		response.BadRequest(c, "file too large")
		return nil, "", 0, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "failed to open upload")
		return nil, "", 0, false
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, h.maxFileBytes+1))
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return nil, "", 0, false
	}

	return fileBytes, fileHeader.Filename, uint(accountID), true
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportInProgress):
		response.Conflict(c, err.Error())
	case errors.Is(err, importer.ErrInputFormat):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.InternalError(c, "import failed")
	}
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trade-importer/internal/middleware"
	"github.com/trade-importer/internal/repository"
	"github.com/trade-importer/pkg/response"
)

// TradeHandler handles imported-trade API requests
type TradeHandler struct {
	tradeRepo   *repository.TradeRepository
	accountRepo *repository.AccountRepository
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(tradeRepo *repository.TradeRepository, accountRepo *repository.AccountRepository) *TradeHandler {
	return &TradeHandler{tradeRepo: tradeRepo, accountRepo: accountRepo}
}

// RegisterRoutes registers trade routes
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	trades := rg.Group("/accounts/:account_id/trades", authMiddleware)
	{
		trades.GET("", h.List)
	}
}

// List returns the account's imported trades, newest entry first
// GET /api/v1/accounts/:account_id/trades
func (h *TradeHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	if _, err := h.accountRepo.GetByIDAndUserID(uint(accountID), userID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.InternalError(c, "failed to load account")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	trades, total, err := h.tradeRepo.GetByUserAndAccountPaginated(userID, uint(accountID), page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to list trades")
		return
	}

	response.SuccessPaginated(c, trades, total, page, pageSize)
}

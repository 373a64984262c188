package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trade-importer/internal/middleware"
	"github.com/trade-importer/internal/models"
	"github.com/trade-importer/internal/repository"
	"github.com/trade-importer/pkg/response"
)

// AccountHandler handles trading account API requests
type AccountHandler struct {
	accountRepo *repository.AccountRepository
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountRepo *repository.AccountRepository) *AccountHandler {
	return &AccountHandler{accountRepo: accountRepo}
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	accounts := rg.Group("/accounts", authMiddleware)
	{
		accounts.POST("", h.Create)
		accounts.GET("", h.List)
		accounts.GET("/:account_id", h.Get)
		accounts.DELETE("/:account_id", h.Delete)
	}
}

// Create creates a trading account
// POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=100"`
		Broker   string `json:"broker" binding:"max=50"`
		Currency string `json:"currency" binding:"omitempty,len=3"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account := &models.Account{
		UserID:   middleware.GetUserID(c),
		Name:     req.Name,
		Broker:   req.Broker,
		Currency: req.Currency,
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}

	if err := h.accountRepo.Create(account); err != nil {
		response.InternalError(c, "failed to create account")
		return
	}

	response.Created(c, account)
}

// List returns the user's accounts
// GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountRepo.GetByUserID(middleware.GetUserID(c))
	if err != nil {
		response.InternalError(c, "failed to list accounts")
		return
	}
	response.Success(c, accounts)
}

// Get returns one account
// GET /api/v1/accounts/:account_id
func (h *AccountHandler) Get(c *gin.Context) {
	account, ok := h.ownedAccount(c)
	if !ok {
		return
	}
	response.Success(c, account)
}

// Delete removes an account
// DELETE /api/v1/accounts/:account_id
func (h *AccountHandler) Delete(c *gin.Context) {
	account, ok := h.ownedAccount(c)
	if !ok {
		return
	}
	if err := h.accountRepo.Delete(account.ID); err != nil {
		response.InternalError(c, "failed to delete account")
		return
	}
	response.Success(c, gin.H{"deleted": account.ID})
}

func (h *AccountHandler) ownedAccount(c *gin.Context) (*models.Account, bool) {
	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return nil, false
	}

	account, err := h.accountRepo.GetByIDAndUserID(uint(accountID), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return nil, false
		}
		response.InternalError(c, "failed to load account")
		return nil, false
	}
	return account, true
}

package http

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/quantora/hedgingengine/internal/hedging/application"
	"github.com/quantora/hedgingengine/internal/hedging/domain"
)

// HedgingHandler 对冲引擎 HTTP 处理器
type HedgingHandler struct {
	service     *application.HedgingService
	adminAPIKey string
}

// NewHedgingHandler 创建处理器
func NewHedgingHandler(service *application.HedgingService, adminAPIKey string) *HedgingHandler {
	return &HedgingHandler{service: service, adminAPIKey: adminAPIKey}
}

// RegisterRoutes 注册路由
func (h *HedgingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/hedging")
	{
		api.POST("/positions", h.OpenPosition)
		api.POST("/positions/:id/close", h.ClosePosition)
		api.POST("/positions/:id/margin/add", h.AddMargin)
		api.POST("/positions/:id/margin/remove", h.RemoveMargin)
		api.GET("/positions/:id", h.GetPosition)
		api.GET("/positions", h.ListPositions)
		api.GET("/accounts/:hedger", h.GetAccount)
		api.POST("/rewards/claim", h.ClaimRewards)
		api.GET("/params", h.GetParams)

		api.POST("/liquidations/commit", h.CommitLiquidation)
		api.POST("/liquidations/execute", h.ExecuteLiquidation)
		api.GET("/liquidations/:hedger/:id", h.GetCommitment)

		admin := api.Group("/admin", AdminAuthMiddleware(h.adminAPIKey))
		{
			admin.POST("/hedgers/:hedger/whitelist", h.WhitelistHedger)
			admin.POST("/hedgers/:hedger/suspend", h.SuspendHedger)
		}
	}
}

type openPositionRequest struct {
	Hedger   string `json:"hedger" binding:"required"`
	Margin   string `json:"margin" binding:"required"`
	Leverage string `json:"leverage" binding:"required"`
}

// OpenPosition 开仓
func (h *HedgingHandler) OpenPosition(c *gin.Context) {
	var req openPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	margin, err := decimal.NewFromString(req.Margin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid margin"})
		return
	}
	leverage, err := decimal.NewFromString(req.Leverage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leverage"})
		return
	}

	result, err := h.service.Command.OpenPosition(c.Request.Context(), application.OpenPositionCommand{
		Hedger:   req.Hedger,
		Margin:   margin,
		Leverage: leverage,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type ownerRequest struct {
	Hedger string `json:"hedger" binding:"required"`
}

// ClosePosition 平仓
func (h *HedgingHandler) ClosePosition(c *gin.Context) {
	positionID, ok := h.positionID(c)
	if !ok {
		return
	}
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Command.ClosePosition(c.Request.Context(), application.ClosePositionCommand{
		Hedger:     req.Hedger,
		PositionID: positionID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type marginRequest struct {
	Hedger string `json:"hedger" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// AddMargin 追加保证金
func (h *HedgingHandler) AddMargin(c *gin.Context) {
	h.marginOp(c, h.service.Command.AddMargin)
}

// RemoveMargin 提取保证金
func (h *HedgingHandler) RemoveMargin(c *gin.Context) {
	h.marginOp(c, h.service.Command.RemoveMargin)
}

func (h *HedgingHandler) marginOp(c *gin.Context, op func(ctx context.Context, cmd application.MarginCommand) (*application.PositionDTO, error)) {
	positionID, ok := h.positionID(c)
	if !ok {
		return
	}
	var req marginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	dto, err := op(c.Request.Context(), application.MarginCommand{
		Hedger:     req.Hedger,
		PositionID: positionID,
		Amount:     amount,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

type commitRequest struct {
	Liquidator string `json:"liquidator" binding:"required"`
	Hedger     string `json:"hedger" binding:"required"`
	Hash       string `json:"hash" binding:"required"`
}

// CommitLiquidation 提交强平承诺
func (h *HedgingHandler) CommitLiquidation(c *gin.Context) {
	var req struct {
		commitRequest
		PositionID int64 `json:"position_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, ok := h.decode32(c, req.Hash)
	if !ok {
		return
	}

	result, err := h.service.Command.CommitLiquidation(c.Request.Context(), application.CommitLiquidationCommand{
		Liquidator: req.Liquidator,
		Hedger:     req.Hedger,
		PositionID: req.PositionID,
		Hash:       hash,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ExecuteLiquidation 执行强平
func (h *HedgingHandler) ExecuteLiquidation(c *gin.Context) {
	var req struct {
		Liquidator string `json:"liquidator" binding:"required"`
		Hedger     string `json:"hedger" binding:"required"`
		PositionID int64  `json:"position_id" binding:"required"`
		Salt       string `json:"salt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	salt, ok := h.decode32(c, req.Salt)
	if !ok {
		return
	}

	result, err := h.service.Command.ExecuteLiquidation(c.Request.Context(), application.ExecuteLiquidationCommand{
		Liquidator: req.Liquidator,
		Hedger:     req.Hedger,
		PositionID: req.PositionID,
		Salt:       salt,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClaimRewards 领取奖励
func (h *HedgingHandler) ClaimRewards(c *gin.Context) {
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Command.ClaimRewards(c.Request.Context(), req.Hedger)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPosition 查询仓位
func (h *HedgingHandler) GetPosition(c *gin.Context) {
	positionID, ok := h.positionID(c)
	if !ok {
		return
	}
	dto, err := h.service.Query.GetPosition(c.Request.Context(), positionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ListPositions 查询对冲方活跃仓位
func (h *HedgingHandler) ListPositions(c *gin.Context) {
	hedger := c.Query("hedger")
	if hedger == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hedger is required"})
		return
	}
	dtos, err := h.service.Query.ListPositions(c.Request.Context(), hedger)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dtos, "total": len(dtos)})
}

// GetAccount 查询对冲方账户
func (h *HedgingHandler) GetAccount(c *gin.Context) {
	dto, err := h.service.Query.GetAccount(c.Request.Context(), c.Param("hedger"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetCommitment 查询强平承诺
func (h *HedgingHandler) GetCommitment(c *gin.Context) {
	positionID, ok := h.positionID(c)
	if !ok {
		return
	}
	dto, err := h.service.Query.GetCommitment(c.Request.Context(), c.Param("hedger"), positionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetParams 查询引擎参数
func (h *HedgingHandler) GetParams(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Query.GetParams(c.Request.Context()))
}

// WhitelistHedger 管理接口：准入对冲方
func (h *HedgingHandler) WhitelistHedger(c *gin.Context) {
	dto, err := h.service.Command.WhitelistHedger(c.Request.Context(), c.Param("hedger"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// SuspendHedger 管理接口：停用对冲方
func (h *HedgingHandler) SuspendHedger(c *gin.Context) {
	if err := h.service.Command.SuspendHedger(c.Request.Context(), c.Param("hedger")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suspended"})
}

func (h *HedgingHandler) positionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position id"})
		return 0, false
	}
	return id, true
}

func (h *HedgingHandler) decode32(c *gin.Context, s string) ([32]byte, bool) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected 32-byte hex value"})
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// writeError 领域错误到 HTTP 状态码的映射
func (h *HedgingHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrHedgerAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPositionOwnerMismatch),
		errors.Is(err, domain.ErrHedgerNotWhitelisted):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrLiquidationCooldown),
		errors.Is(err, domain.ErrCommitmentAlreadyExists),
		errors.Is(err, domain.ErrNoValidCommitment),
		errors.Is(err, domain.ErrPositionNotLiquidatable),
		errors.Is(err, domain.ErrPositionNotActive):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidLeverage),
		errors.Is(err, domain.ErrLeverageTooHigh),
		errors.Is(err, domain.ErrInvalidMarginAmount),
		errors.Is(err, domain.ErrInsufficientMargin),
		errors.Is(err, domain.ErrMarginRatioTooLow),
		errors.Is(err, domain.ErrMarginRatioTooHigh),
		errors.Is(err, domain.ErrMarginExceedsMaximum),
		errors.Is(err, domain.ErrPositionSizeExceedsMaximum),
		errors.Is(err, domain.ErrEntryPriceExceedsMaximum),
		errors.Is(err, domain.ErrTooManyPositions),
		errors.Is(err, domain.ErrTotalMarginExceedsMaximum),
		errors.Is(err, domain.ErrTotalExposureExceedsMaximum),
		errors.Is(err, domain.ErrVaultUndercollateralized),
		errors.Is(err, domain.ErrNoPendingRewards),
		errors.Is(err, domain.ErrTimestampOverflow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidOraclePrice),
		errors.Is(err, domain.ErrFlashLoanAttackDetected):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

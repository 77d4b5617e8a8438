package domain

import "errors"

var (
	ErrInvalidLeverage             = errors.New("invalid leverage")
	ErrLeverageTooHigh             = errors.New("leverage too high")
	ErrInvalidMarginAmount         = errors.New("invalid margin amount")
	ErrInsufficientMargin          = errors.New("insufficient margin")
	ErrMarginRatioTooLow           = errors.New("margin ratio too low")
	ErrMarginRatioTooHigh          = errors.New("margin ratio too high")
	ErrMarginExceedsMaximum        = errors.New("margin exceeds per-position maximum")
	ErrPositionSizeExceedsMaximum  = errors.New("position size exceeds maximum")
	ErrEntryPriceExceedsMaximum    = errors.New("entry price exceeds maximum")
	ErrPositionNotFound            = errors.New("position not found")
	ErrPositionNotActive           = errors.New("position not active")
	ErrPositionOwnerMismatch       = errors.New("position owner mismatch")
	ErrTooManyPositions            = errors.New("too many positions for hedger")
	ErrHedgerNotWhitelisted        = errors.New("hedger not whitelisted")
	ErrHedgerAccountNotFound       = errors.New("hedger account not found")
	ErrTotalMarginExceedsMaximum   = errors.New("total margin exceeds maximum")
	ErrTotalExposureExceedsMaximum = errors.New("total exposure exceeds maximum")
	ErrLiquidationCooldown         = errors.New("liquidation cooldown not elapsed")
	ErrNoValidCommitment           = errors.New("no valid liquidation commitment")
	ErrCommitmentAlreadyExists     = errors.New("liquidation commitment already exists")
	ErrPositionNotLiquidatable     = errors.New("position not liquidatable")
	ErrLiquidationRewardTooHigh    = errors.New("liquidation reward too high")
	ErrInvalidOraclePrice          = errors.New("invalid oracle price")
	ErrVaultUndercollateralized    = errors.New("vault would be undercollateralized")
	ErrFlashLoanAttackDetected     = errors.New("flash loan attack detected")
	ErrNoPendingRewards            = errors.New("no pending rewards")
	ErrTimestampOverflow           = errors.New("timestamp overflow")
)

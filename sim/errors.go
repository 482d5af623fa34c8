package sim

import "errors"

// Gateway rejections. All are expected, recoverable conditions returned to
// the caller, never panics.
var (
	ErrInsufficientMargin = errors.New("insufficient free margin")
	ErrInvalidStopLoss    = errors.New("stop loss on wrong side of entry price")
	ErrInvalidTakeProfit  = errors.New("take profit on wrong side of entry price")
	ErrInvalidLots        = errors.New("lot size out of range")
	ErrNoPrice            = errors.New("no market price yet")
	ErrPositionNotFound   = errors.New("position not found")
)

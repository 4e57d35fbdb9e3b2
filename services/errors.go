package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/playpoints/ledger/utils"
)

// Kind classifies a failure for callers. Transports map kinds to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindNotFound
	KindConflict
	KindInsufficientBalance
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a typed engine failure with a stable API code.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated, Code: 40110, Message: "unauthenticated"}
	ErrAccountNotFound       = &Error{Kind: KindNotFound, Code: 40410, Message: "account not found"}
	ErrInvalidAmount         = &Error{Kind: KindInvalidInput, Code: 40020, Message: "amount must be a positive integer"}
	ErrAmountOverflow        = &Error{Kind: KindInvalidInput, Code: 40022, Message: "amount would overflow the account balance"}
	ErrInvalidReason         = &Error{Kind: KindInvalidInput, Code: 40021, Message: "reason is required"}
	ErrInsufficientBalance   = &Error{Kind: KindInsufficientBalance, Code: 40210, Message: "insufficient balance"}
	ErrBusy                  = &Error{Kind: KindConflict, Code: 40901, Message: "account is busy, retry later"}
	ErrDuplicate             = &Error{Kind: KindConflict, Code: 40902, Message: "duplicate request"}
	ErrAlreadyCheckedInToday = &Error{Kind: KindConflict, Code: 40930, Message: "already checked in today"}
	ErrCheckInNotFound       = &Error{Kind: KindNotFound, Code: 40430, Message: "check-in not found"}
	ErrInvalidDay            = &Error{Kind: KindInvalidInput, Code: 40030, Message: "day must be formatted as YYYY-MM-DD"}
	ErrInvalidSettlement     = &Error{Kind: KindInvalidInput, Code: 40031, Message: "settlement status must be confirmed or failed"}
	ErrSettlementFinal       = &Error{Kind: KindConflict, Code: 40931, Message: "settlement already finalized"}
	ErrInvalidBoostSource    = &Error{Kind: KindInvalidInput, Code: 40040, Message: "boost source id is required"}
	ErrInvalidBoostPercent   = &Error{Kind: KindInvalidInput, Code: 40041, Message: "boost percentage out of range"}
	ErrBoostNotFound         = &Error{Kind: KindNotFound, Code: 40440, Message: "boost not found"}
	ErrRewardNotFound        = &Error{Kind: KindNotFound, Code: 40450, Message: "reward not found"}
	ErrRewardInactive        = &Error{Kind: KindConflict, Code: 40950, Message: "reward is not available"}
	ErrQuestNotFound         = &Error{Kind: KindNotFound, Code: 40460, Message: "quest not found"}
	ErrQuestInactive         = &Error{Kind: KindConflict, Code: 40960, Message: "quest is not active"}
	ErrQuestAutoTracked      = &Error{Kind: KindInvalidInput, Code: 40061, Message: "quest progress is tracked automatically"}
	ErrInvalidProgress       = &Error{Kind: KindInvalidInput, Code: 40060, Message: "progress delta must be positive"}
	ErrInvalidPeriod         = &Error{Kind: KindInvalidInput, Code: 40062, Message: "period must be a current or past day (YYYY-MM-DD) or month (YYYY-MM)"}
	ErrNotCompleted          = &Error{Kind: KindConflict, Code: 40961, Message: "quest not completed"}
	ErrAlreadyClaimed        = &Error{Kind: KindConflict, Code: 40962, Message: "quest reward already claimed"}
	ErrInvalidSnapshot       = &Error{Kind: KindInvalidInput, Code: 40070, Message: "invalid playtime snapshot"}
	ErrInvalidCatalog        = &Error{Kind: KindInvalidInput, Code: 40080, Message: "invalid catalog entry"}
)

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func lockError(err error) error {
	if errors.Is(err, utils.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrBusy
	}
	return err
}

package errors

import "fmt"

// Validation failures rendered back to the user as a reply.
var (
	ErrUnknownUnit           = fmt.Errorf("unknown unit")
	ErrInvalidAddress        = fmt.Errorf("invalid ledger address")
	ErrInsufficientFunds     = fmt.Errorf("insufficient funds")
	ErrInsufficientFeeMargin = fmt.Errorf("insufficient fee margin")
	ErrCommentTooLong        = fmt.Errorf("comment too long")
	ErrNoAccount             = fmt.Errorf("sender has no account")
	ErrSelfTip               = fmt.Errorf("cannot tip yourself")
	ErrBotSelfTip            = fmt.Errorf("cannot tip the bot")
	ErrMixedRecipientKinds   = fmt.Errorf("recipients mix an address with mentions")
	ErrParseFailure          = fmt.Errorf("unrecognized command")
)

// Infrastructure failures. A ledger fault terminates the in-flight command,
// a stream fault feeds the reconnect policy.
var (
	ErrLedgerFault = fmt.Errorf("ledger fault")
	ErrStreamFault = fmt.Errorf("stream fault")
)

var (
	ErrAccountAlreadyExists = fmt.Errorf("account already exists")
	ErrAccountNotFound      = fmt.Errorf("account not found")
	ErrSelfInstantMessage   = fmt.Errorf("cannot open an instant message with the bot itself")
	ErrDuplicateUnit        = fmt.Errorf("unit id, name or moniker already registered")
	ErrInvalidAmount        = fmt.Errorf("invalid amount")
	ErrRetryThrottled       = fmt.Errorf("reconnect attempted before the retry interval elapsed")
)

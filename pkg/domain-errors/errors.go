package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a single user-diagnosable failure reason. Every rejected
// operation surfaces exactly one code; callers remediate and resubmit rather
// than retrying blindly.
type Code string

const (
	// Compliance gate reasons, in evaluation order.
	CodeTransfersPaused             Code = "transfers_paused"
	CodeTransferAmountExceeded      Code = "transfer_amount_exceeded"
	CodeSenderNotWhitelisted        Code = "sender_not_whitelisted"
	CodeReceiverNotWhitelisted      Code = "receiver_not_whitelisted"
	CodeSenderBlacklisted           Code = "sender_blacklisted"
	CodeReceiverBlacklisted         Code = "receiver_blacklisted"
	CodeKYCExpired                  Code = "kyc_expired"
	CodeCooldownActive              Code = "cooldown_active"
	CodeJurisdictionBlocked         Code = "jurisdiction_blocked"
	CodeJurisdictionAmountExceeded  Code = "jurisdiction_amount_exceeded"

	// Registry.
	CodeAssetNotActive Code = "asset_not_active"
	CodeMintFrozen     Code = "mint_frozen"
	CodeHookBound      Code = "transfer_hook_already_bound"

	// Escrow.
	CodeEscrowNotInExpectedState Code = "escrow_not_in_expected_state"
	CodeEscrowNotExpired         Code = "escrow_not_expired"
	CodeEscrowExpired            Code = "escrow_expired"
	CodeEscrowAlreadyOpen        Code = "escrow_already_open"

	// Auction.
	CodeAuctionNotActive       Code = "auction_not_active"
	CodeAuctionNotStarted      Code = "auction_not_started"
	CodeAuctionEnded           Code = "auction_ended"
	CodeAuctionNotEnded        Code = "auction_not_ended"
	CodeBidTooLow              Code = "bid_too_low"
	CodeReserveNotMet          Code = "reserve_not_met"
	CodeSellerCannotBid        Code = "seller_cannot_bid"
	CodeCannotCancelWinningBid Code = "cannot_cancel_winning_bid"
	CodeAuctionHasBids         Code = "auction_has_bids"

	// Cross-cutting.
	CodeInvalidParameter   Code = "invalid_parameter"
	CodeInvalidState       Code = "invalid_state"
	CodeInsufficientFunds  Code = "insufficient_funds"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeInternal           Code = "internal"
)

// Error is a value-level domain error. It carries the code for programmatic
// handling and a human-readable message for logs and API responses.
type Error struct {
	Code    Code
	Message string
	// Field names the offending input for invalid-parameter errors.
	Field string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewField builds an invalid-parameter error naming the rejected field.
func NewField(field, message string) *Error {
	return &Error{Code: CodeInvalidParameter, Message: message, Field: field}
}

// CodeOf extracts the domain code from an error, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is allows errors.Is matching on the code, so callers can compare against a
// template error without caring about the message.
func (e *Error) Is(target error) bool {
	de, ok := target.(*Error)
	return ok && de.Code == e.Code
}

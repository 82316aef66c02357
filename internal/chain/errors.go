package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Category groups wallet and contract failures into what a player is told.
type Category string

const (
	CategoryUserRejected      Category = "user_rejected"
	CategoryInsufficientFunds Category = "insufficient_funds"
	CategorySelfChallenge     Category = "self_challenge"
	CategoryInvalidAddress    Category = "invalid_address"
	CategoryNotOnChain        Category = "not_on_chain"
	CategoryNotOpponent       Category = "not_opponent"
	CategoryGameNotFound      Category = "game_not_found"
	CategoryUnknown           Category = "unknown"
)

// codeUserRejected is the EIP-1193 "user rejected request" code.
const codeUserRejected = 4001

var (
	ErrInvalidAddress    = errors.New("Invalid opponent address")
	ErrSelfChallenge     = errors.New("Cannot challenge yourself")
	ErrChallengeNotFound = errors.New("challenge does not exist on-chain")
	ErrNotOpponent       = errors.New("Only opponent can accept")
	ErrNotConfigured     = errors.New("escrow contract not configured")
)

var messages = map[Category]string{
	CategoryUserRejected:      "Transaction rejected by user",
	CategoryInsufficientFunds: "Insufficient MON balance for stake amount",
	CategorySelfChallenge:     "You cannot challenge yourself. Please enter a different wallet address.",
	CategoryInvalidAddress:    "Invalid opponent wallet address. Please check and try again.",
	CategoryNotOnChain:        "Game not found on-chain. The creator may need to wait for their transaction to confirm. Please try again in a moment.",
	CategoryNotOpponent:       "You are not the opponent for this challenge. Check the game ID.",
	CategoryGameNotFound:      "Game not found. Please check the game ID and try again.",
}

// Message is the player-facing text for c.
func (c Category) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "Transaction failed. Please try again."
}

// Classify maps an error from a wallet, node or contract revert to a Category.
// Matching is on error codes first and on revert reason substrings after.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return CategoryUserRejected
	}

	switch {
	case errors.Is(err, ErrSelfChallenge):
		return CategorySelfChallenge
	case errors.Is(err, ErrInvalidAddress):
		return CategoryInvalidAddress
	case errors.Is(err, ErrChallengeNotFound):
		return CategoryNotOnChain
	case errors.Is(err, ErrNotOpponent):
		return CategoryNotOpponent
	}

	msg := err.Error()
	switch {
	case strings.Contains(strings.ToLower(msg), "insufficient funds"):
		return CategoryInsufficientFunds
	case strings.Contains(msg, "Cannot challenge yourself"):
		return CategorySelfChallenge
	case strings.Contains(msg, "Invalid opponent address"):
		return CategoryInvalidAddress
	case strings.Contains(msg, "does not exist on-chain"):
		return CategoryNotOnChain
	case strings.Contains(msg, "Only opponent can accept"):
		return CategoryNotOpponent
	case strings.Contains(msg, "Game not found"):
		return CategoryGameNotFound
	}
	return CategoryUnknown
}

// ValidAddress reports whether s is a 0x-prefixed 20 byte hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s) && strings.HasPrefix(strings.ToLower(s), "0x")
}

// SameAddress compares two addresses ignoring checksum case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CheckOpponent runs the checks done before a challenge is created.
func CheckOpponent(caller, opponent string) error {
	if !ValidAddress(opponent) {
		return ErrInvalidAddress
	}
	if SameAddress(caller, opponent) {
		return ErrSelfChallenge
	}
	return nil
}

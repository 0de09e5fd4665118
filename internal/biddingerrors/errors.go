package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error categories. Every specific error below wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrState         = errors.New("state error")
	ErrConflict      = errors.New("conflict error")
	ErrTransient     = errors.New("transient infrastructure error")
)

// validation errors
var (
	ErrInvalidBid     = fmt.Errorf("%w: invalid bid", ErrValidation)
	ErrBidTooLow      = fmt.Errorf("%w: bid amount too low", ErrValidation)
	ErrInvalidListing = fmt.Errorf("%w: invalid listing", ErrValidation)
)

// authorization errors
var (
	ErrSelfBid  = fmt.Errorf("%w: owner cannot bid on own auction", ErrAuthorization)
	ErrNotOwner = fmt.Errorf("%w: caller does not own the artwork", ErrAuthorization)
)

// state errors
var (
	ErrAuctionNotFound   = fmt.Errorf("%w: auction not found", ErrState)
	ErrArtworkNotFound   = fmt.Errorf("%w: artwork not found", ErrState)
	ErrAuctionExpired    = fmt.Errorf("%w: auction has ended", ErrState)
	ErrAuctionNotStarted = fmt.Errorf("%w: auction has not started", ErrState)
	ErrAuctionNotEnded   = fmt.Errorf("%w: auction is still running", ErrState)
	ErrArtworkSold       = fmt.Errorf("%w: artwork already sold", ErrState)
)

// ErrBidConflict means a concurrent writer changed the auction between the
// bidder's read and the conditional write. The bid was not recorded.
var ErrBidConflict = fmt.Errorf("%w: auction changed concurrently", ErrConflict)

// ErrStoreUnavailable means the data store could not complete the request.
// Nothing was persisted and the caller may retry.
var ErrStoreUnavailable = fmt.Errorf("%w: data store unavailable", ErrTransient)

// BidTooLowError carries the highest bid the rejected amount had to beat
type BidTooLowError struct {
	Current decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("your bid must exceed the current highest bid of %s", e.Current.StringFixed(2))
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// NewBidTooLow builds a BidTooLowError for the given highest bid
func NewBidTooLow(current decimal.Decimal) error {
	return &BidTooLowError{Current: current}
}

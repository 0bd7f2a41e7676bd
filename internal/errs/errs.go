package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindFetchFailed
	KindMutationFailed
	KindAuthRejected
	KindValidationFailed
	KindIndexOutOfRange
	KindEmptyCart
	KindNotFound
	KindForbidden
	KindNotReady
)

// Messages shown to the acting user.
const (
	ErrMsgFetchFailed     = "Could not load the product list"
	ErrMsgMutationFailed  = "The product store rejected the change"
	ErrMsgAuthRejected    = "Incorrect password"
	ErrMsgMissingFields   = "Name and price are required"
	ErrMsgPriceInvalid    = "Price must be a whole number greater than or equal to zero"
	ErrMsgImageURLInvalid = "Image URL must be an absolute http(s) URL"
	ErrMsgIndexOutOfRange = "No cart entry at that position"
	ErrMsgEmptyCart       = "Cart is empty"
	ErrMsgProductNotFound = "Product not found"
	ErrMsgAdminRequired   = "Admin mode is required"
	ErrMsgStillLoading    = "Products are still loading"
	ErrMsgMissingID       = "Product id is required"
	ErrMsgUploadsDisabled = "Image uploads are not configured"
	ErrMsgUploadFailed    = "Could not upload the image"
	ErrMsgPriceTooHigh    = "Price is too high"
	ErrMsgCartTooLarge    = "Cart total is too large"
)

func (k Kind) String() string {
	switch k {
	case KindFetchFailed:
		return "FETCH_FAILED"
	case KindMutationFailed:
		return "MUTATION_FAILED"
	case KindAuthRejected:
		return "AUTH_REJECTED"
	case KindValidationFailed:
		return "VALIDATION_FAILED"
	case KindIndexOutOfRange:
		return "INDEX_OUT_OF_RANGE"
	case KindEmptyCart:
		return "EMPTY_CART"
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotReady:
		return "NOT_READY"
	default:
		return "UNKNOWN"
	}
}

// Error is a storefront failure carrying the kind the transports map to a status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Sentinels for errors.Is checks.
var (
	ErrFetchFailed      = &Error{Kind: KindFetchFailed}
	ErrMutationFailed   = &Error{Kind: KindMutationFailed}
	ErrAuthRejected     = &Error{Kind: KindAuthRejected}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrIndexOutOfRange  = &Error{Kind: KindIndexOutOfRange}
	ErrEmptyCart        = &Error{Kind: KindEmptyCart}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotReady         = &Error{Kind: KindNotReady}
)

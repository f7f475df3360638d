package fidelis

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the broad class of a Failure. Kinds satisfy error so callers can
// write errors.Is(err, fidelis.KindTransportFault).
type Kind int

const (
	// KindTransportFault: the remote call failed at the protocol layer.
	KindTransportFault Kind = iota + 1
	// KindVendorRejection: Fidelis returned a documented failure code.
	KindVendorRejection
	// KindUnknownResponse: the code is not in the operation's table, or a
	// required field is missing.
	KindUnknownResponse
	// KindMalformedEnvelope: the result payload is not well-formed XML.
	KindMalformedEnvelope
)

func (k Kind) String() string {
	switch k {
	case KindTransportFault:
		return "transport-fault"
	case KindVendorRejection:
		return "vendor-rejection"
	case KindUnknownResponse:
		return "unknown-vendor-response"
	case KindMalformedEnvelope:
		return "malformed-envelope"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) Error() string { return "fidelis: " + k.String() }

// Category is the machine-readable reason of a Failure. Categories satisfy
// error so callers can branch with errors.Is(err, fidelis.CategoryInsufficientPoints).
type Category string

const (
	CategoryInvalidIdentity           Category = "invalid-identity"
	CategoryInvalidCard               Category = "invalid-card"
	CategoryVendorInternalError       Category = "vendor-internal-error"
	CategoryInvalidTransaction        Category = "invalid-transaction"
	CategoryCardExpired               Category = "card-expired"
	CategoryWrongMerchant             Category = "wrong-merchant"
	CategoryAlreadyLoaded             Category = "already-loaded"
	CategoryIncorrectCardType         Category = "incorrect-card-type"
	CategoryTransactionTypeNotAllowed Category = "transaction-type-not-allowed"
	CategoryCardNotActivated          Category = "card-not-activated"
	CategoryInsufficientPoints        Category = "insufficient-points"
	CategoryDuplicateTransaction      Category = "duplicate-transaction"
	CategoryReversal                  Category = "reversal"
	CategoryInvalidRequest            Category = "invalid-request"

	CategoryTransportFault    Category = "transport-fault"
	CategoryUnknownResponse   Category = "unknown-vendor-response"
	CategoryMalformedEnvelope Category = "malformed-envelope"
)

func (c Category) Error() string { return "fidelis: " + string(c) }

// Failure is the error returned by every Client method.
type Failure struct {
	Kind      Kind
	Category  Category
	Message   string
	Operation string
	// Code is the raw vendor return code, when one was read.
	Code string
	// Raw is the result payload as received, for diagnostics.
	Raw string
	// Status is the HTTP status class of the failure; zero means derive from Kind.
	Status int
	Err    error
}

func (f *Failure) Error() string {
	msg := f.Message
	if f.Kind == KindUnknownResponse && f.Code != "" {
		msg = fmt.Sprintf("%s (code %q)", msg, f.Code)
	}
	if f.Operation == "" {
		return "fidelis: " + msg
	}
	return fmt.Sprintf("fidelis %s: %s", f.Operation, msg)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return f.Kind == t
	case Category:
		return f.Category == t
	}
	return false
}

// HTTPStatus maps the failure to a status code for HTTP callers.
func (f *Failure) HTTPStatus() int {
	if f.Status != 0 {
		return f.Status
	}
	switch f.Kind {
	case KindTransportFault:
		return http.StatusBadRequest
	case KindVendorRejection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AsFailure extracts the *Failure from err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func transportFault(op string, err error) *Failure {
	return &Failure{
		Kind:      KindTransportFault,
		Category:  CategoryTransportFault,
		Message:   err.Error(),
		Operation: op,
		Err:       err,
	}
}

func unknownResponse(op, code, raw, message string) *Failure {
	if message == "" {
		message = "unknown error"
	}
	return &Failure{
		Kind:      KindUnknownResponse,
		Category:  CategoryUnknownResponse,
		Message:   message,
		Operation: op,
		Code:      code,
		Raw:       raw,
	}
}

func malformedEnvelope(op, raw string, err error) *Failure {
	return &Failure{
		Kind:      KindMalformedEnvelope,
		Category:  CategoryMalformedEnvelope,
		Message:   "malformed response envelope: " + err.Error(),
		Operation: op,
		Raw:       raw,
		Err:       err,
	}
}

// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/toychain/utxonode/business/sys/validate"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/jobs"
	"github.com/toychain/utxonode/foundation/blockchain/state"
)

// Set of error kinds reported to clients.
const (
	KindInvalidAmount      = "InvalidAmount"
	KindInsufficientFunds  = "InsufficientFunds"
	KindInvalidTransaction = "InvalidTransaction"
	KindChainIntegrity     = "ChainIntegrityError"
	KindStaleBlock         = "StaleBlock"
	KindPersistence        = "PersistenceError"
	KindJobNotFound        = "JobNotFound"
	KindQueueFull          = "QueueFull"
	KindPeerUnreachable    = "PeerUnreachable"
	KindNotFound           = "NotFound"
	KindValidation         = "ValidationError"
	KindShutdown           = "Shutdown"
	KindInternal           = "Internal"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// kinds maps the sentinel errors to their kind and HTTP status. The order
// matters when an error wraps more than one sentinel.
var kinds = []struct {
	err    error
	kind   string
	status int
}{
	{database.ErrChainIntegrity, KindChainIntegrity, http.StatusNotAcceptable},
	{database.ErrStaleBlock, KindStaleBlock, http.StatusConflict},
	{database.ErrInvalidAmount, KindInvalidAmount, http.StatusBadRequest},
	{database.ErrInsufficientFunds, KindInsufficientFunds, http.StatusUnprocessableEntity},
	{database.ErrInvalidTransaction, KindInvalidTransaction, http.StatusBadRequest},
	{database.ErrPersistence, KindPersistence, http.StatusInternalServerError},
	{database.ErrNotFound, KindNotFound, http.StatusNotFound},
	{jobs.ErrJobNotFound, KindJobNotFound, http.StatusNotFound},
	{jobs.ErrQueueFull, KindQueueFull, http.StatusServiceUnavailable},
	{jobs.ErrShutdown, KindShutdown, http.StatusServiceUnavailable},
	{state.ErrShutdown, KindShutdown, http.StatusServiceUnavailable},
	{state.ErrPeerUnreachable, KindPeerUnreachable, http.StatusBadGateway},
}

// Kind returns the machine checkable kind for the error.
func Kind(err error) string {
	kind, _ := classify(err)
	return kind
}

// ToResponse builds the response envelope and HTTP status for the error.
// Errors that are not known to the ledger are reported without their
// message.
func ToResponse(err error) (Response, int) {
	if fe := validate.GetFieldErrors(err); fe != nil {
		return Response{
			Error:  "data validation error",
			Kind:   KindValidation,
			Fields: fe.Fields(),
		}, http.StatusBadRequest
	}

	kind, status := classify(err)

	if trusted := GetTrusted(err); trusted != nil {
		status = trusted.Status
		if kind == KindInternal {
			kind = KindValidation
			if status >= http.StatusInternalServerError {
				kind = KindInternal
			}
		}
		return Response{Error: trusted.Error(), Kind: kind}, status
	}

	if kind == KindInternal {
		return Response{Error: http.StatusText(status), Kind: kind}, status
	}

	return Response{Error: err.Error(), Kind: kind}, status
}

func classify(err error) (string, int) {
	if validate.IsFieldErrors(err) {
		return KindValidation, http.StatusBadRequest
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind, k.status
		}
	}

	return KindInternal, http.StatusInternalServerError
}

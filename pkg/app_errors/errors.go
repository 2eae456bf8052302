package apperrors

import "errors"

// Kind 錯誤分類，handler 依此決定 HTTP 狀態碼
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindCapacity      Kind = "capacity"
	KindState         Kind = "state"
	KindPayment       Kind = "payment"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// Error 帶分類與代碼的錯誤，以指標比較 (errors.Is)
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// validation
	ErrInvalidEventParameters = newError(KindValidation, "InvalidEventParameters", "invalid event parameters")
	ErrInvalidAmount          = newError(KindValidation, "InvalidAmount", "invalid amount")
	ErrInvalidIdentity        = newError(KindValidation, "InvalidIdentity", "invalid identity")
	ErrInvalidInput           = newError(KindValidation, "InvalidInput", "invalid input")

	// authorization
	ErrNotOrganizer             = newError(KindAuthorization, "NotOrganizer", "caller is not the event organizer")
	ErrNotTicketOwner           = newError(KindAuthorization, "NotTicketOwner", "caller does not own the ticket")
	ErrNotAllowedToBuyOwnTicket = newError(KindAuthorization, "NotAllowedToBuyOwnTicket", "organizer cannot buy tickets to own event")
	ErrCannotBuyOwnListing      = newError(KindAuthorization, "CannotBuyOwnListing", "seller cannot buy own listing")
	ErrNotApproved              = newError(KindAuthorization, "NotApproved", "operator is not approved for the ticket")
	ErrSelfAttendance           = newError(KindAuthorization, "SelfAttendance", "organizer cannot record own attendance")

	// capacity
	ErrEventSoldOut = newError(KindCapacity, "EventSoldOut", "event sold out")

	// state
	ErrAlreadyCancelled = newError(KindState, "AlreadyCancelled", "event already cancelled")
	ErrEventCancelled   = newError(KindState, "EventCancelled", "event is cancelled")
	ErrAlreadyListed    = newError(KindState, "AlreadyListed", "ticket already listed")
	ErrNotListed        = newError(KindState, "NotListed", "ticket not listed")

	// payment
	ErrIncorrectPayment     = newError(KindPayment, "IncorrectPayment", "incorrect payment amount")
	ErrInsufficientRefund   = newError(KindPayment, "InsufficientRefund", "refund pool does not cover total received")
	ErrRefundTransferFailed = newError(KindPayment, "RefundTransferFailed", "refund transfer failed")
	ErrPaymentFailed        = newError(KindPayment, "PaymentFailed", "payment transfer failed")

	// not found
	ErrEventNotFound  = newError(KindNotFound, "EventNotFound", "event not found")
	ErrTicketNotFound = newError(KindNotFound, "UnknownTicket", "ticket not found")

	ErrInternalServerError = newError(KindInternal, "InternalServerError", "internal server error")
)

// KindOf 回傳錯誤鏈中第一個 *Error 的分類，未分類的錯誤視為 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf 回傳錯誤代碼，供 UI 區分 "sold out" / "payment" / "not authorized"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternalServerError.Code
}

package service

type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "VALIDATION"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeNotMember          ErrorCode = "NOT_MEMBER"
	ErrorCodeAlreadyMember      ErrorCode = "ALREADY_MEMBER"
	ErrorCodeOwnerCannotLeave   ErrorCode = "OWNER_CANNOT_LEAVE"
	ErrorCodeNotAuthorized      ErrorCode = "NOT_AUTHORIZED"
	ErrorCodeCodeSpaceExhausted ErrorCode = "CODE_SPACE_EXHAUSTED"
	ErrorCodePartialFailure     ErrorCode = "PARTIAL_FAILURE"
	ErrorCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrorCodeInvalidBody        ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified        ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewServiceError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

package serrors

// BaseError is a coded error that can cross the service boundary.
// Code is a stable machine-readable identifier, Message is the
// human-readable default and LocaleKey points to a translation entry
// when the consumer renders localized messages.
type BaseError struct {
	Code      string
	Message   string
	LocaleKey string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

package consulting

import "errors"

// ValidationError 请求参数不合法，Message 直接返回给客户端
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrMissingFields = &ValidationError{Message: "Please complete all required fields."}
	ErrInvalidEmail  = &ValidationError{Message: "Enter a valid email address."}

	ErrDeliveryNotConfigured = errors.New("Email delivery is not configured on the server. Please contact support@adaptbtc.com directly.")
)

// DeliveryError 请求已保存但未能投递
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "Unable to send request: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

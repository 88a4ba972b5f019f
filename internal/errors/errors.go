// internal/errors/errors.go
package appErrors

import "fmt"

// ValidationError reports malformed or missing input. Nothing has been sent
// or written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation is a helper constructor
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TemplateError means the shared template could not be parsed or executed.
// It aborts the whole run.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error: %v", e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

func NewTemplate(err error) error {
	return &TemplateError{Err: err}
}

// DeliveryError is a single recipient's send failure. Temporary is set when
// the relay answered with a 4xx code or the network gave up mid-message.
type DeliveryError struct {
	Recipient string
	Temporary bool
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func NewDelivery(recipient string, temporary bool, err error) error {
	return &DeliveryError{Recipient: recipient, Temporary: temporary, Err: err}
}

// TransportSetupError means the mail session could not be established
// (bad credentials, relay unreachable). No recipient is attempted.
type TransportSetupError struct {
	Account string
	Err     error
}

func (e *TransportSetupError) Error() string {
	return fmt.Sprintf("mail session for %s could not be opened: %v", e.Account, e.Err)
}

func (e *TransportSetupError) Unwrap() error { return e.Err }

func NewTransportSetup(account string, err error) error {
	return &TransportSetupError{Account: account, Err: err}
}

// ListNotFoundError is returned when a recipient list id is unknown or expired.
type ListNotFoundError struct {
	ID string
}

func (e *ListNotFoundError) Error() string {
	return fmt.Sprintf("recipient list %s not found", e.ID)
}

func NewListNotFound(id string) error {
	return &ListNotFoundError{ID: id}
}

package models

// ProcessingError tells the consumer loop how to settle a delivery that
// failed.
type ProcessingError struct {
	Err     error
	Requeue bool
}

func (p ProcessingError) Error() string {
	return p.Err.Error()
}

func (p ProcessingError) Unwrap() error {
	return p.Err
}

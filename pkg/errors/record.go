package errors

import "fmt"

// Record is the error slot of a batch result.
//
// One Record exists per failed item. Index correlates the record with the
// batch input; it is nil for records produced outside a batch.
type Record struct {
	Index   *int
	Code    Code
	Message string
	Cause   error
}

// RecordFrom converts err into a Record for batch slot index.
// Errors without a code are classified as CANCELLED when they come from the
// context and INTERNAL_ERROR otherwise. Returns nil if err is nil.
func RecordFrom(index int, err error) *Record {
	if err == nil {
		return nil
	}
	r := NewRecord(err)
	r.Index = &index
	return r
}

// NewRecord converts err into a Record without batch correlation.
// Returns nil if err is nil.
func NewRecord(err error) *Record {
	if err == nil {
		return nil
	}
	code := GetCode(err)
	if code == "" {
		code = ErrCodeInternal
	}
	return &Record{
		Code:    code,
		Message: UserMessage(err),
		Cause:   err,
	}
}

// Error implements the error interface.
func (r *Record) Error() string {
	if r.Index != nil {
		return fmt.Sprintf("item %d: %s: %s", *r.Index, r.Code, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Unwrap returns the original error.
func (r *Record) Unwrap() error { return r.Cause }

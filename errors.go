package liftline

import "errors"

// Configuration errors returned by the builders. They are wrapped with the offending context.
var (
	ErrEmptyWingList       = errors.New("no wings")
	ErrMismatchedLengths   = errors.New("mismatched lengths")
	ErrZeroLength          = errors.New("zero length")
	ErrMultipleCorrections = errors.New("more than one circulation correction")
	ErrInvalidSetting      = errors.New("invalid setting")
)

package camerasystem

import "github.com/pkg/errors"

var (
	// ErrMalformedInput is wrapped by parse failures: bad numeric lists, missing required
	// fields, unrecognized names and wrong record or line counts.
	ErrMalformedInput = errors.New("malformed calibration input")
	// ErrInvariantViolation is wrapped when arguments break a size or index invariant, a rotation
	// is given two ways or the camera count cap is reached.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrUnsupportedFormat is returned for unrecognized calibration file extensions and for
	// writing a system whose type is unknown.
	ErrUnsupportedFormat = errors.New("unsupported calibration format")
)

func malformedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedInput, format, args...)
}

func invariantf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvariantViolation, format, args...)
}

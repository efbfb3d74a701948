package camerasystem

import "go.viam.com/calibration/logging"

// DefaultMaxCameras is the default camera count cap. A system holds at most DefaultMaxCameras-1 cameras.
const DefaultMaxCameras = 10

// options configures a System.
type options struct {
	logger     logging.Logger
	maxCameras int
}

func defaultOptions() options {
	return options{
		logger:     logging.NewBlankLogger("camerasystem"),
		maxCameras: DefaultMaxCameras,
	}
}

// Option configures how a System is built or read.
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithLogger returns an Option which sets the logger used while parsing and writing.
func WithLogger(logger logging.Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// MinMaxCameras is the smallest camera count cap, one that allows a single camera.
const MinMaxCameras = 2

// WithMaxCameras returns an Option which overrides the camera count cap. Values below
// MinMaxCameras are raised to MinMaxCameras.
func WithMaxCameras(n int) Option {
	return newFuncOption(func(o *options) {
		o.maxCameras = max(n, MinMaxCameras)
	})
}

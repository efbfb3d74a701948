package camerasystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/logging"
)

// calibration is the result of a successful parse, before any camera is built.
type calibration struct {
	systemType SystemType
	cameras    []camera.Info
	user6      []float64
	user4x4    *mat.Dense
}

// calibrationReader is one file dialect. Readers with no extensions are always tried and may
// report that the file is not theirs; the others are chosen by extension and own the file.
type calibrationReader struct {
	name       string
	extensions []string
	read       func(path string, maxCameras int, logger logging.Logger) (*calibration, bool, error)
}

var calibrationReaders = []calibrationReader{
	{name: "native", read: readNative},
	{name: "vic3d", extensions: []string{".xml"}, read: readVIC3D},
	{name: "text", extensions: []string{".txt"}, read: readText},
}

// NewSystemFromFile reads the calibration file at path.
func NewSystemFromFile(path string, opts ...Option) (*System, error) {
	s := NewSystem(opts...)
	if err := s.read(path); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadCalibrationFile is an alias of NewSystemFromFile.
func ReadCalibrationFile(path string, opts ...Option) (*System, error) {
	return NewSystemFromFile(path, opts...)
}

func (s *System) read(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "cannot read calibration file %q", path)
	}
	if info.IsDir() {
		return errors.Errorf("calibration file %q is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, reader := range calibrationReaders {
		if len(reader.extensions) > 0 && !lo.Contains(reader.extensions, ext) {
			continue
		}
		logger := s.logger.Sublogger(reader.name)
		cal, matched, err := reader.read(path, s.maxCameras, logger)
		if err != nil {
			return errors.Wrapf(err, "error reading %s calibration file %q", reader.name, path)
		}
		if !matched {
			logger.Debugw("not this format", "path", path)
			continue
		}
		return s.load(cal)
	}
	return errors.Wrapf(ErrUnsupportedFormat, "unrecognized calibration file format %q", path)
}

// load builds every camera before touching s so that a failure leaves s empty.
func (s *System) load(cal *calibration) error {
	if len(cal.cameras) > s.maxCameras-1 {
		return invariantf("too many cameras, at most %d allowed", s.maxCameras-1)
	}
	cameras := make([]*camera.Camera, 0, len(cal.cameras))
	for i, info := range cal.cameras {
		cam, err := camera.New(info)
		if err != nil {
			return errors.Wrapf(err, "camera %d", i)
		}
		cameras = append(cameras, cam)
	}
	s.systemType = cal.systemType
	s.cameras = cameras
	s.user6 = cal.user6
	s.user4x4 = cal.user4x4

	s.logger.Debugw("loaded calibration", "system_type", s.systemType, "cameras", len(s.cameras),
		"user_6_transform", s.user6 != nil, "user_4x4_transform", s.user4x4 != nil)
	for i, cam := range s.cameras {
		h, w := cam.ImageSize()
		tx, ty, tz := cam.Translation()
		s.logger.Debugw("camera",
			"index", i,
			"id", cam.ID(),
			"intrinsics", cam.Intrinsics(),
			"distortion", cam.DistortionModel().String(),
			"translation", []float64{tx, ty, tz},
			"rotation", fmt.Sprintf("%v", mat.Formatted(cam.RotationMatrix(), mat.Squeeze())),
			"height", h,
			"width", w,
			"pixel_depth", cam.PixelDepth(),
			"lens", cam.Lens(),
			"comments", cam.Comments())
	}
	return nil
}

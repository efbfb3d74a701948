package camera

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidCamera is wrapped by every descriptor validation failure.
var ErrInvalidCamera = errors.New("invalid camera")

// Info is everything a calibration file can say about one camera.
type Info struct {
	ID              string
	ImageHeight     int
	ImageWidth      int
	PixelDepth      int
	Lens            string
	Comments        string
	Intrinsics      Intrinsics
	DistortionModel LensDistortionModel
	// Tx, Ty and Tz translate world points into the camera frame after rotation.
	Tx, Ty, Tz float64
	// Rotation is the 3x3 world to camera rotation. Nil means identity.
	Rotation *mat.Dense
}

// SetRotationFromEuler replaces Rotation with the matrix derived from angles in degrees.
func (info *Info) SetRotationFromEuler(alpha, beta, gamma float64) {
	info.Rotation = RotationFromEuler(alpha, beta, gamma)
}

// CheckValid returns every problem with the descriptor combined into one error.
func (info *Info) CheckValid() error {
	if info == nil {
		return errors.Wrap(ErrInvalidCamera, "camera info not provided")
	}
	var err error
	if info.ImageHeight <= 0 || info.ImageWidth <= 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidCamera,
			"image height and width must be positive, got (%d, %d)", info.ImageHeight, info.ImageWidth))
	}
	if info.Intrinsics[FX] == 0 || info.Intrinsics[FY] == 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidCamera,
			"focal lengths must be non-zero, got (%v, %v)", info.Intrinsics[FX], info.Intrinsics[FY]))
	}
	if !info.DistortionModel.Valid() {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidCamera, "unknown lens distortion model %d", int(info.DistortionModel)))
	}
	if info.Rotation != nil {
		if r, c := info.Rotation.Dims(); r != 3 || c != 3 {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidCamera, "rotation must be 3x3, got %dx%d", r, c))
		}
	}
	return err
}

// Package camerasystem holds a set of calibrated cameras, reads and writes calibration files and
// projects image points from one camera into another.
package camerasystem

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/logging"
)

// NumUser6Params is the length of the user supplied 6 parameter transform.
const NumUser6Params = 6

// A System is an ordered collection of cameras with optional user supplied transforms.
// Cameras are immutable; a System is not safe for concurrent mutation but concurrent
// projections on an unchanging System are safe.
type System struct {
	logger     logging.Logger
	maxCameras int
	systemType SystemType
	cameras    []*camera.Camera
	user6      []float64
	user4x4    *mat.Dense
}

// NewSystem returns an empty system of unknown type.
func NewSystem(opts ...Option) *System {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &System{
		logger:     o.logger,
		maxCameras: o.maxCameras,
		systemType: UnknownSystem,
	}
}

// AddCamera appends a camera. It fails once the system holds MaxCameras-1 cameras.
func (s *System) AddCamera(cam *camera.Camera) error {
	if cam == nil {
		return invariantf("camera is nil")
	}
	if len(s.cameras) >= s.maxCameras-1 {
		return invariantf("too many cameras, at most %d allowed", s.maxCameras-1)
	}
	s.cameras = append(s.cameras, cam)
	return nil
}

// SetSystemType sets the system type.
func (s *System) SetSystemType(t SystemType) {
	s.systemType = t
}

// SetUser6Transform stores a copy of the user 6 parameter transform.
func (s *System) SetUser6Transform(params []float64) error {
	if len(params) != NumUser6Params {
		return invariantf("user transform needs %d parameters, got %d", NumUser6Params, len(params))
	}
	s.user6 = append([]float64(nil), params...)
	return nil
}

// SetUser4x4Transform stores a copy of the user 4x4 transform.
func (s *System) SetUser4x4Transform(m *mat.Dense) error {
	if m == nil {
		return invariantf("user 4x4 transform is nil")
	}
	if r, c := m.Dims(); r != 4 || c != 4 {
		return invariantf("user transform must be 4x4, got %dx%d", r, c)
	}
	s.user4x4 = mat.DenseCopyOf(m)
	return nil
}

// NumCameras returns the number of cameras.
func (s *System) NumCameras() int {
	return len(s.cameras)
}

// Camera returns camera i.
func (s *System) Camera(i int) (*camera.Camera, error) {
	if i < 0 || i >= len(s.cameras) {
		return nil, invariantf("camera index %d out of range [0, %d)", i, len(s.cameras))
	}
	return s.cameras[i], nil
}

// Cameras returns the cameras in order.
func (s *System) Cameras() []*camera.Camera {
	return append([]*camera.Camera(nil), s.cameras...)
}

// SystemType returns the system type.
func (s *System) SystemType() SystemType {
	return s.systemType
}

// MaxCameras returns the camera count cap.
func (s *System) MaxCameras() int {
	return s.maxCameras
}

// User6Transform returns a copy of the user 6 parameter transform if one is set.
func (s *System) User6Transform() ([]float64, bool) {
	if s.user6 == nil {
		return nil, false
	}
	return append([]float64(nil), s.user6...), true
}

// User4x4Transform returns a copy of the user 4x4 transform if one is set.
func (s *System) User4x4Transform() (*mat.Dense, bool) {
	if s.user4x4 == nil {
		return nil, false
	}
	return mat.DenseCopyOf(s.user4x4), true
}

// String prints a table of the cameras, with columns of id, image size, distortion model,
// focal lengths, image center and translation.
func (s *System) String() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%v: %d cameras", s.systemType, len(s.cameras)))
	t.AppendHeader(table.Row{"#", "ID", "Size (WxH)", "Distortion", "Focal", "Center", "Translation"})
	for i, cam := range s.cameras {
		in := cam.Intrinsics()
		h, w := cam.ImageSize()
		tx, ty, tz := cam.Translation()
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", i),
			cam.ID(),
			fmt.Sprintf("%dx%d", w, h),
			cam.DistortionModel().String(),
			fmt.Sprintf("FX:%.2f, FY:%.2f", in[camera.FX], in[camera.FY]),
			fmt.Sprintf("CX:%.2f, CY:%.2f", in[camera.CX], in[camera.CY]),
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", tx, ty, tz),
		})
	}
	return t.Render()
}

// Package camera implements a single calibrated camera: its descriptor and the transforms
// between image, sensor, camera and world coordinates.
//
// Image coordinates are pixels. Sensor coordinates are undistorted normalized coordinates
// (x/z, y/z in the camera frame). Camera coordinates are the 3D camera frame and world
// coordinates are related to them by the extrinsic rotation and translation.
package camera

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Camera is an immutable calibrated camera.
type Camera struct {
	info      Info
	rotation  *mat.Dense
	r         [9]float64
	distorter *distorter
}

// New validates info and returns a camera holding a copy of it.
func New(info Info) (*Camera, error) {
	if err := info.CheckValid(); err != nil {
		return nil, err
	}
	info.Rotation = copyRotation(info.Rotation)
	d, err := newDistorter(info.DistortionModel, &info.Intrinsics)
	if err != nil {
		return nil, err
	}
	cam := &Camera{info: info, rotation: info.Rotation, distorter: d}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cam.r[3*i+j] = info.Rotation.At(i, j)
		}
	}
	return cam, nil
}

// Info returns a copy of the descriptor the camera was built from.
func (c *Camera) Info() Info {
	info := c.info
	info.Rotation = mat.DenseCopyOf(c.rotation)
	return info
}

// ID returns the camera identifier.
func (c *Camera) ID() string {
	return c.info.ID
}

// Intrinsics returns a copy of the intrinsic array.
func (c *Camera) Intrinsics() Intrinsics {
	return c.info.Intrinsics
}

// Intrinsic returns a single intrinsic value.
func (c *Camera) Intrinsic(p IntrinsicParam) (float64, error) {
	return c.info.Intrinsics.Value(p)
}

// DistortionModel returns the lens distortion model.
func (c *Camera) DistortionModel() LensDistortionModel {
	return c.info.DistortionModel
}

// Translation returns tx, ty and tz.
func (c *Camera) Translation() (float64, float64, float64) {
	return c.info.Tx, c.info.Ty, c.info.Tz
}

// RotationMatrix returns a copy of the world to camera rotation.
func (c *Camera) RotationMatrix() *mat.Dense {
	return mat.DenseCopyOf(c.rotation)
}

// ImageSize returns the image height and width in pixels.
func (c *Camera) ImageSize() (int, int) {
	return c.info.ImageHeight, c.info.ImageWidth
}

// PixelDepth returns the bit depth of a pixel, 0 when unknown.
func (c *Camera) PixelDepth() int {
	return c.info.PixelDepth
}

// Lens returns the free text lens description.
func (c *Camera) Lens() string {
	return c.info.Lens
}

// Comments returns the free text comments.
func (c *Camera) Comments() string {
	return c.info.Comments
}

func (c *Camera) String() string {
	return fmt.Sprintf("%s (%dx%d, %v)", c.info.ID, c.info.ImageWidth, c.info.ImageHeight, c.info.DistortionModel)
}

package camera

import (
	"math"

	"github.com/pkg/errors"
)

// Indices of the shape function parameters consumed by SensorToCam. The point is placed on the
// plane through (0, 0, ZP) whose normal is (cos(theta)sin(phi), sin(theta)sin(phi), cos(phi)).
const (
	ShapeZP = iota
	ShapeTheta
	ShapePhi
	// NumShapeParams is the length of a shape parameter vector.
	NumShapeParams
)

// ErrVectorSize is returned when coordinate or partials slices do not have the expected sizes.
var ErrVectorSize = errors.New("vector size mismatch")

// ErrDegenerate is returned when a point cannot be transformed, such as a ray parallel to the
// shape plane or a camera point with z = 0.
var ErrDegenerate = errors.New("degenerate point")

const degenerateTolerance = 1e-12

func checkSizes(vecs ...[]float64) (int, error) {
	if len(vecs) == 0 {
		return 0, nil
	}
	n := len(vecs[0])
	for i, v := range vecs[1:] {
		if len(v) != n {
			return 0, errors.Wrapf(ErrVectorSize, "vector %d has length %d, expected %d", i+1, len(v), n)
		}
	}
	return n, nil
}

// checkPartials verifies that every partials argument has the given number of channels, each of length n.
func checkPartials(n, channels int, parts ...[][]float64) error {
	for i, p := range parts {
		if len(p) != channels {
			return errors.Wrapf(ErrVectorSize, "partials %d has %d channels, expected %d", i, len(p), channels)
		}
		for j, ch := range p {
			if len(ch) != n {
				return errors.Wrapf(ErrVectorSize, "partials %d channel %d has length %d, expected %d", i, j, len(ch), n)
			}
		}
	}
	return nil
}

// ImageToSensor converts pixel coordinates to undistorted sensor coordinates.
func (c *Camera) ImageToSensor(imgX, imgY, sensX, sensY []float64) error {
	n, err := checkSizes(imgX, imgY, sensX, sensY)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		xd, yd := c.imageToDistorted(imgX[i], imgY[i])
		sensX[i], sensY[i], _ = c.distorter.undistort(xd, yd)
	}
	return nil
}

// ImageToSensorWithPartials converts pixel coordinates and propagates their partials.
func (c *Camera) ImageToSensorWithPartials(
	imgX, imgY []float64, imgDx, imgDy [][]float64,
	sensX, sensY []float64, sensDx, sensDy [][]float64,
) error {
	n, err := checkSizes(imgX, imgY, sensX, sensY)
	if err != nil {
		return err
	}
	if err := checkPartials(n, len(imgDx), imgDx, imgDy, sensDx, sensDy); err != nil {
		return err
	}
	fx, fy, fs := c.info.Intrinsics[FX], c.info.Intrinsics[FY], c.info.Intrinsics[FS]
	for i := 0; i < n; i++ {
		xd, yd := c.imageToDistorted(imgX[i], imgY[i])
		xs, ys, jac := c.distorter.undistort(xd, yd)
		for j := range imgDx {
			dyd := imgDy[j][i] / fy
			dxd := (imgDx[j][i] - fs*dyd) / fx
			dxs, dys, ok := jac.solve(dxd, dyd)
			if !ok {
				return errors.Wrapf(ErrDegenerate, "singular distortion at pixel (%v, %v)", imgX[i], imgY[i])
			}
			sensDx[j][i], sensDy[j][i] = dxs, dys
		}
		sensX[i], sensY[i] = xs, ys
	}
	return nil
}

func (c *Camera) imageToDistorted(u, v float64) (float64, float64) {
	in := &c.info.Intrinsics
	yd := (v - in[CY]) / in[FY]
	xd := (u - in[CX] - in[FS]*yd) / in[FX]
	return xd, yd
}

// SensorToImage applies lens distortion and the pixel mapping to sensor coordinates.
func (c *Camera) SensorToImage(sensX, sensY, imgX, imgY []float64) error {
	n, err := checkSizes(sensX, sensY, imgX, imgY)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		xd, yd, _ := c.distorter.distort(sensX[i], sensY[i])
		imgX[i], imgY[i] = c.distortedToImage(xd, yd)
	}
	return nil
}

// SensorToImageWithPartials is SensorToImage that also propagates partials.
func (c *Camera) SensorToImageWithPartials(
	sensX, sensY []float64, sensDx, sensDy [][]float64,
	imgX, imgY []float64, imgDx, imgDy [][]float64,
) error {
	n, err := checkSizes(sensX, sensY, imgX, imgY)
	if err != nil {
		return err
	}
	if err := checkPartials(n, len(sensDx), sensDx, sensDy, imgDx, imgDy); err != nil {
		return err
	}
	fx, fy, fs := c.info.Intrinsics[FX], c.info.Intrinsics[FY], c.info.Intrinsics[FS]
	for i := 0; i < n; i++ {
		xd, yd, jac := c.distorter.distort(sensX[i], sensY[i])
		for j := range sensDx {
			dxd, dyd := jac.apply(sensDx[j][i], sensDy[j][i])
			imgDx[j][i] = fx*dxd + fs*dyd
			imgDy[j][i] = fy * dyd
		}
		imgX[i], imgY[i] = c.distortedToImage(xd, yd)
	}
	return nil
}

func (c *Camera) distortedToImage(xd, yd float64) (float64, float64) {
	in := &c.info.Intrinsics
	return in[FX]*xd + in[FS]*yd + in[CX], in[FY]*yd + in[CY]
}

func checkShapeParams(params []float64) error {
	if len(params) != NumShapeParams {
		return errors.Wrapf(ErrVectorSize, "expected %d shape parameters, got %d", NumShapeParams, len(params))
	}
	return nil
}

// SensorToCam projects sensor coordinates onto the plane described by the shape parameters.
func (c *Camera) SensorToCam(sensX, sensY, params, camX, camY, camZ []float64) error {
	if err := checkShapeParams(params); err != nil {
		return err
	}
	n, err := checkSizes(sensX, sensY, camX, camY, camZ)
	if err != nil {
		return err
	}
	plane := newShapePlane(params)
	for i := 0; i < n; i++ {
		xs, ys := sensX[i], sensY[i]
		den := plane.denominator(xs, ys)
		if math.Abs(den) < degenerateTolerance {
			return errors.Wrapf(ErrDegenerate, "sensor point (%v, %v) is parallel to the shape plane", xs, ys)
		}
		z := plane.zp * plane.cosPhi / den
		camX[i], camY[i], camZ[i] = xs*z, ys*z, z
	}
	return nil
}

// SensorToCamWithPartials is SensorToCam that also returns the partials of the camera
// coordinates with respect to each of the NumShapeParams shape parameters.
func (c *Camera) SensorToCamWithPartials(
	sensX, sensY, params, camX, camY, camZ []float64,
	camDx, camDy, camDz [][]float64,
) error {
	if err := checkShapeParams(params); err != nil {
		return err
	}
	n, err := checkSizes(sensX, sensY, camX, camY, camZ)
	if err != nil {
		return err
	}
	if err := checkPartials(n, NumShapeParams, camDx, camDy, camDz); err != nil {
		return err
	}
	plane := newShapePlane(params)
	for i := 0; i < n; i++ {
		xs, ys := sensX[i], sensY[i]
		den := plane.denominator(xs, ys)
		if math.Abs(den) < degenerateTolerance {
			return errors.Wrapf(ErrDegenerate, "sensor point (%v, %v) is parallel to the shape plane", xs, ys)
		}
		num := plane.zp * plane.cosPhi
		z := num / den
		dDenTheta := -xs*plane.sinTheta*plane.sinPhi + ys*plane.cosTheta*plane.sinPhi
		dDenPhi := -plane.sinPhi + xs*plane.cosTheta*plane.cosPhi + ys*plane.sinTheta*plane.cosPhi
		den2 := den * den
		dz := [NumShapeParams]float64{
			ShapeZP:    plane.cosPhi / den,
			ShapeTheta: -num * dDenTheta / den2,
			ShapePhi:   (-plane.zp*plane.sinPhi*den - num*dDenPhi) / den2,
		}
		for j := 0; j < NumShapeParams; j++ {
			camDx[j][i] = xs * dz[j]
			camDy[j][i] = ys * dz[j]
			camDz[j][i] = dz[j]
		}
		camX[i], camY[i], camZ[i] = xs*z, ys*z, z
	}
	return nil
}

type shapePlane struct {
	zp                 float64
	cosTheta, sinTheta float64
	cosPhi, sinPhi     float64
}

func newShapePlane(params []float64) shapePlane {
	return shapePlane{
		zp:       params[ShapeZP],
		cosTheta: math.Cos(params[ShapeTheta]),
		sinTheta: math.Sin(params[ShapeTheta]),
		cosPhi:   math.Cos(params[ShapePhi]),
		sinPhi:   math.Sin(params[ShapePhi]),
	}
}

func (p shapePlane) denominator(xs, ys float64) float64 {
	return p.cosPhi + xs*p.cosTheta*p.sinPhi + ys*p.sinTheta*p.sinPhi
}

// CamToWorld maps camera coordinates to world coordinates: w = R^T (c - t).
func (c *Camera) CamToWorld(camX, camY, camZ, worldX, worldY, worldZ []float64) error {
	n, err := checkSizes(camX, camY, camZ, worldX, worldY, worldZ)
	if err != nil {
		return err
	}
	r := &c.r
	for i := 0; i < n; i++ {
		x, y, z := camX[i]-c.info.Tx, camY[i]-c.info.Ty, camZ[i]-c.info.Tz
		worldX[i] = r[0]*x + r[3]*y + r[6]*z
		worldY[i] = r[1]*x + r[4]*y + r[7]*z
		worldZ[i] = r[2]*x + r[5]*y + r[8]*z
	}
	return nil
}

// CamToWorldWithPartials is CamToWorld that also rotates the partials.
func (c *Camera) CamToWorldWithPartials(
	camX, camY, camZ []float64, camDx, camDy, camDz [][]float64,
	worldX, worldY, worldZ []float64, worldDx, worldDy, worldDz [][]float64,
) error {
	n, err := checkSizes(camX, camY, camZ, worldX, worldY, worldZ)
	if err != nil {
		return err
	}
	if err := checkPartials(n, len(camDx), camDx, camDy, camDz, worldDx, worldDy, worldDz); err != nil {
		return err
	}
	r := &c.r
	for j := range camDx {
		for i := 0; i < n; i++ {
			x, y, z := camDx[j][i], camDy[j][i], camDz[j][i]
			worldDx[j][i] = r[0]*x + r[3]*y + r[6]*z
			worldDy[j][i] = r[1]*x + r[4]*y + r[7]*z
			worldDz[j][i] = r[2]*x + r[5]*y + r[8]*z
		}
	}
	return c.CamToWorld(camX, camY, camZ, worldX, worldY, worldZ)
}

// WorldToCam maps world coordinates to camera coordinates: c = R w + t.
func (c *Camera) WorldToCam(worldX, worldY, worldZ, camX, camY, camZ []float64) error {
	n, err := checkSizes(worldX, worldY, worldZ, camX, camY, camZ)
	if err != nil {
		return err
	}
	r := &c.r
	for i := 0; i < n; i++ {
		x, y, z := worldX[i], worldY[i], worldZ[i]
		camX[i] = r[0]*x + r[1]*y + r[2]*z + c.info.Tx
		camY[i] = r[3]*x + r[4]*y + r[5]*z + c.info.Ty
		camZ[i] = r[6]*x + r[7]*y + r[8]*z + c.info.Tz
	}
	return nil
}

// WorldToCamWithPartials is WorldToCam that also rotates the partials.
func (c *Camera) WorldToCamWithPartials(
	worldX, worldY, worldZ []float64, worldDx, worldDy, worldDz [][]float64,
	camX, camY, camZ []float64, camDx, camDy, camDz [][]float64,
) error {
	n, err := checkSizes(worldX, worldY, worldZ, camX, camY, camZ)
	if err != nil {
		return err
	}
	if err := checkPartials(n, len(worldDx), worldDx, worldDy, worldDz, camDx, camDy, camDz); err != nil {
		return err
	}
	r := &c.r
	for j := range worldDx {
		for i := 0; i < n; i++ {
			x, y, z := worldDx[j][i], worldDy[j][i], worldDz[j][i]
			camDx[j][i] = r[0]*x + r[1]*y + r[2]*z
			camDy[j][i] = r[3]*x + r[4]*y + r[5]*z
			camDz[j][i] = r[6]*x + r[7]*y + r[8]*z
		}
	}
	return c.WorldToCam(worldX, worldY, worldZ, camX, camY, camZ)
}

// CamToSensor projects camera coordinates onto the normalized sensor plane.
func (c *Camera) CamToSensor(camX, camY, camZ, sensX, sensY []float64) error {
	n, err := checkSizes(camX, camY, camZ, sensX, sensY)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if camZ[i] == 0 {
			return errors.Wrapf(ErrDegenerate, "camera point %d has z = 0", i)
		}
		sensX[i] = camX[i] / camZ[i]
		sensY[i] = camY[i] / camZ[i]
	}
	return nil
}

// CamToSensorWithPartials is CamToSensor that also propagates partials.
func (c *Camera) CamToSensorWithPartials(
	camX, camY, camZ []float64, camDx, camDy, camDz [][]float64,
	sensX, sensY []float64, sensDx, sensDy [][]float64,
) error {
	n, err := checkSizes(camX, camY, camZ, sensX, sensY)
	if err != nil {
		return err
	}
	if err := checkPartials(n, len(camDx), camDx, camDy, camDz, sensDx, sensDy); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		x, y, z := camX[i], camY[i], camZ[i]
		if z == 0 {
			return errors.Wrapf(ErrDegenerate, "camera point %d has z = 0", i)
		}
		z2 := z * z
		for j := range camDx {
			dz := camDz[j][i]
			sensDx[j][i] = (camDx[j][i]*z - x*dz) / z2
			sensDy[j][i] = (camDy[j][i]*z - y*dz) / z2
		}
		sensX[i] = x / z
		sensY[i] = y / z
	}
	return nil
}

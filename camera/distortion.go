package camera

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LensDistortionModel selects how the distortion coefficients of the intrinsic array are interpreted.
type LensDistortionModel int

// The supported lens distortion models.
const (
	// NoDistortion ignores every distortion coefficient.
	NoDistortion LensDistortionModel = iota
	// OpenCVDistortion is the OpenCV model: rational radial K1..K6, tangential P1 P2,
	// thin prism S1..S4 and the Scheimpflug tilt T1 T2.
	OpenCVDistortion
	// VIC3DDistortion is Brown-Conrady radial K1 K2 K3 with tangential P1 P2.
	VIC3DDistortion
	// K1R1K2R2K3R3 scales by 1 + K1 r + K2 r^2 + K3 r^3.
	K1R1K2R2K3R3
	// K1R2K2R4K3R6 scales by 1 + K1 r^2 + K2 r^4 + K3 r^6.
	K1R2K2R4K3R6
	// K1R3K2R5K3R7 scales by 1 + K1 r^3 + K2 r^5 + K3 r^7.
	K1R3K2R5K3R7
	numLensDistortionModels
)

var lensDistortionModelNames = [numLensDistortionModels]string{
	"NONE",
	"OPENCV_DIS",
	"VIC3D_DIS",
	"K1R1_K2R2_K3R3",
	"K1R2_K2R4_K3R6",
	"K1R3_K2R5_K3R7",
}

// AllLensDistortionModels lists the models in declaration order.
func AllLensDistortionModels() []LensDistortionModel {
	models := make([]LensDistortionModel, numLensDistortionModels)
	for i := range models {
		models[i] = LensDistortionModel(i)
	}
	return models
}

// Valid reports whether m is one of the declared models.
func (m LensDistortionModel) Valid() bool {
	return m >= 0 && m < numLensDistortionModels
}

func (m LensDistortionModel) String() string {
	if !m.Valid() {
		return "UNKNOWN_DISTORTION"
	}
	return lensDistortionModelNames[m]
}

// LensDistortionModelFromString is the inverse of LensDistortionModel.String.
func LensDistortionModelFromString(name string) (LensDistortionModel, error) {
	for i, n := range lensDistortionModelNames {
		if n == name {
			return LensDistortionModel(i), nil
		}
	}
	return 0, errors.Errorf("invalid lens distortion model %q", name)
}

// jacobian2 is a row major 2x2 matrix [dxd/dx, dxd/dy, dyd/dx, dyd/dy].
type jacobian2 [4]float64

var identityJacobian = jacobian2{1, 0, 0, 1}

func (j jacobian2) apply(dx, dy float64) (float64, float64) {
	return j[0]*dx + j[1]*dy, j[2]*dx + j[3]*dy
}

func (j jacobian2) det() float64 {
	return j[0]*j[3] - j[1]*j[2]
}

// solve returns J^-1 (a, b), false when J is singular.
func (j jacobian2) solve(a, b float64) (float64, float64, bool) {
	det := j.det()
	if det == 0 {
		return 0, 0, false
	}
	return (j[3]*a - j[1]*b) / det, (-j[2]*a + j[0]*b) / det, true
}

func (j jacobian2) mul(o jacobian2) jacobian2 {
	return jacobian2{
		j[0]*o[0] + j[1]*o[2], j[0]*o[1] + j[1]*o[3],
		j[2]*o[0] + j[3]*o[2], j[2]*o[1] + j[3]*o[3],
	}
}

// distorter maps undistorted normalized coordinates to distorted ones along with the Jacobian.
type distorter struct {
	model LensDistortionModel
	k     [6]float64
	p1    float64
	p2    float64
	s     [4]float64
	tilt  *mat.Dense
}

func newDistorter(model LensDistortionModel, in *Intrinsics) (*distorter, error) {
	if !model.Valid() {
		return nil, errors.Errorf("do not know how to apply %v lens distortion", model)
	}
	d := &distorter{
		model: model,
		k:     [6]float64{in[K1], in[K2], in[K3], in[K4], in[K5], in[K6]},
		p1:    in[P1],
		p2:    in[P2],
		s:     [4]float64{in[S1], in[S2], in[S3], in[S4]},
	}
	if model == OpenCVDistortion && (in[T1] != 0 || in[T2] != 0) {
		d.tilt = tiltProjectionMatrix(in[T1], in[T2])
	}
	return d, nil
}

// tiltProjectionMatrix is the Scheimpflug correction used by OpenCV for tilted sensors.
func tiltProjectionMatrix(tauX, tauY float64) *mat.Dense {
	cX, sX := math.Cos(tauX), math.Sin(tauX)
	cY, sY := math.Cos(tauY), math.Sin(tauY)
	rotX := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cX, sX,
		0, -sX, cX,
	})
	rotY := mat.NewDense(3, 3, []float64{
		cY, 0, -sY,
		0, 1, 0,
		sY, 0, cY,
	})
	var rotXY mat.Dense
	rotXY.Mul(rotY, rotX)
	projZ := mat.NewDense(3, 3, []float64{
		rotXY.At(2, 2), 0, -rotXY.At(0, 2),
		0, rotXY.At(2, 2), -rotXY.At(1, 2),
		0, 0, 1,
	})
	var tilt mat.Dense
	tilt.Mul(projZ, &rotXY)
	return &tilt
}

// distort returns the distorted point and d(xd, yd)/d(x, y).
func (d *distorter) distort(x, y float64) (float64, float64, jacobian2) {
	switch d.model {
	case NoDistortion:
		return x, y, identityJacobian
	case OpenCVDistortion:
		return d.openCV(x, y)
	case VIC3DDistortion:
		return d.brownConrady(x, y)
	case K1R1K2R2K3R3:
		return d.radialPolynomial(x, y, 1, 2, 3)
	case K1R2K2R4K3R6:
		return d.radialPolynomial(x, y, 2, 4, 6)
	case K1R3K2R5K3R7:
		return d.radialPolynomial(x, y, 3, 5, 7)
	default:
		return x, y, identityJacobian
	}
}

func (d *distorter) brownConrady(x, y float64) (float64, float64, jacobian2) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := 1 + d.k[0]*r2 + d.k[1]*r4 + d.k[2]*r6
	dRadial := d.k[0] + 2*d.k[1]*r2 + 3*d.k[2]*r4

	xd := x*radial + 2*d.p1*x*y + d.p2*(r2+2*x*x)
	yd := y*radial + d.p1*(r2+2*y*y) + 2*d.p2*x*y
	return xd, yd, jacobian2{
		radial + 2*x*x*dRadial + 2*d.p1*y + 6*d.p2*x,
		2*x*y*dRadial + 2*d.p1*x + 2*d.p2*y,
		2*x*y*dRadial + 2*d.p1*x + 2*d.p2*y,
		radial + 2*y*y*dRadial + 6*d.p1*y + 2*d.p2*x,
	}
}

func (d *distorter) openCV(x, y float64) (float64, float64, jacobian2) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	num := 1 + d.k[0]*r2 + d.k[1]*r4 + d.k[2]*r6
	den := 1 + d.k[3]*r2 + d.k[4]*r4 + d.k[5]*r6
	dNum := d.k[0] + 2*d.k[1]*r2 + 3*d.k[2]*r4
	dDen := d.k[3] + 2*d.k[4]*r2 + 3*d.k[5]*r4
	radial := num / den
	// derivative of the radial factor with respect to r^2
	dRadial := (dNum*den - num*dDen) / (den * den)

	xp := x*radial + 2*d.p1*x*y + d.p2*(r2+2*x*x) + d.s[0]*r2 + d.s[1]*r4
	yp := y*radial + d.p1*(r2+2*y*y) + 2*d.p2*x*y + d.s[2]*r2 + d.s[3]*r4
	jac := jacobian2{
		radial + 2*x*x*dRadial + 2*d.p1*y + 6*d.p2*x + 2*d.s[0]*x + 4*d.s[1]*r2*x,
		2*x*y*dRadial + 2*d.p1*x + 2*d.p2*y + 2*d.s[0]*y + 4*d.s[1]*r2*y,
		2*x*y*dRadial + 2*d.p1*x + 2*d.p2*y + 2*d.s[2]*x + 4*d.s[3]*r2*x,
		radial + 2*y*y*dRadial + 6*d.p1*y + 2*d.p2*x + 2*d.s[2]*y + 4*d.s[3]*r2*y,
	}
	if d.tilt == nil {
		return xp, yp, jac
	}

	m := d.tilt
	v0 := m.At(0, 0)*xp + m.At(0, 1)*yp + m.At(0, 2)
	v1 := m.At(1, 0)*xp + m.At(1, 1)*yp + m.At(1, 2)
	v2 := m.At(2, 0)*xp + m.At(2, 1)*yp + m.At(2, 2)
	v22 := v2 * v2
	tiltJac := jacobian2{
		(m.At(0, 0)*v2 - v0*m.At(2, 0)) / v22,
		(m.At(0, 1)*v2 - v0*m.At(2, 1)) / v22,
		(m.At(1, 0)*v2 - v1*m.At(2, 0)) / v22,
		(m.At(1, 1)*v2 - v1*m.At(2, 1)) / v22,
	}
	return v0 / v2, v1 / v2, tiltJac.mul(jac)
}

// radialPolynomial scales the point by 1 + K1 r^a + K2 r^b + K3 r^c.
func (d *distorter) radialPolynomial(x, y float64, a, b, c float64) (float64, float64, jacobian2) {
	r := math.Hypot(x, y)
	factor := 1 + d.k[0]*math.Pow(r, a) + d.k[1]*math.Pow(r, b) + d.k[2]*math.Pow(r, c)
	xd, yd := x*factor, y*factor
	if r == 0 {
		return xd, yd, jacobian2{factor, 0, 0, factor}
	}
	// d(factor)/dr divided by r, so that d(factor)/dx = g*x
	g := (a*d.k[0]*math.Pow(r, a-1) + b*d.k[1]*math.Pow(r, b-1) + c*d.k[2]*math.Pow(r, c-1)) / r
	return xd, yd, jacobian2{
		factor + g*x*x,
		g * x * y,
		g * x * y,
		factor + g*y*y,
	}
}

const (
	maxUndistortIterations = 20
	undistortTolerance     = 1e-12
)

// undistort inverts distort with Newton-Raphson starting from the distorted point.
func (d *distorter) undistort(xd, yd float64) (float64, float64, jacobian2) {
	if d.model == NoDistortion {
		return xd, yd, identityJacobian
	}
	x, y := xd, yd
	var jac jacobian2
	for i := 0; i < maxUndistortIterations; i++ {
		var ex, ey float64
		ex, ey, jac = d.distort(x, y)
		ex -= xd
		ey -= yd
		if ex*ex+ey*ey < undistortTolerance*undistortTolerance {
			break
		}
		stepX, stepY, ok := jac.solve(ex, ey)
		if !ok {
			break
		}
		x -= stepX
		y -= stepY
	}
	_, _, jac = d.distort(x, y)
	return x, y, jac
}

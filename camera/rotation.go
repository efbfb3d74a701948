package camera

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/utils"
)

// IdentityRotation returns a new 3x3 identity matrix.
func IdentityRotation() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// RotationFromEuler builds the world to camera rotation from angles in degrees about X (alpha),
// Y (beta) and Z (gamma). The result is the transpose of Rz(gamma)*Ry(beta)*Rx(alpha).
func RotationFromEuler(alpha, beta, gamma float64) *mat.Dense {
	cx, sx := math.Cos(utils.DegToRad(alpha)), math.Sin(utils.DegToRad(alpha))
	cy, sy := math.Cos(utils.DegToRad(beta)), math.Sin(utils.DegToRad(beta))
	cz, sz := math.Cos(utils.DegToRad(gamma)), math.Sin(utils.DegToRad(gamma))
	return mat.NewDense(3, 3, []float64{
		cy * cz, cy * sz, -sy,
		sx*sy*cz - cx*sz, sx*sy*sz + cx*cz, sx * cy,
		cx*sy*cz + sx*sz, cx*sy*sz - sx*cz, cx * cy,
	})
}

func copyRotation(r *mat.Dense) *mat.Dense {
	if r == nil {
		return IdentityRotation()
	}
	return mat.DenseCopyOf(r)
}

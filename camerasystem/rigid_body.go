package camerasystem

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Indices of the rigid body motion parameters. Angles are in radians.
const (
	AngleX = iota
	AngleY
	AngleZ
	TranslationX
	TranslationY
	TranslationZ
	// NumRigidBodyParams is the length of a rigid body parameter vector.
	NumRigidBodyParams
)

// RigidBodyTransform is a rotation Rz*Ry*Rx followed by a translation, built from the six
// rigid body parameters. Each value is independent; build one per call rather than sharing it.
type RigidBodyTransform struct {
	// rows hold [r0, r1, r2, t] for the x, y and z outputs.
	rows [3][4]float64
	// angleRows[a][axis] is the derivative of rows[axis][:3] with respect to angle a.
	angleRows   [3][3][3]float64
	hasPartials bool
}

// NewRigidBodyTransform computes the coefficients for params and, when partials is set, the
// coefficients of their derivatives with respect to the three angles.
func NewRigidBodyTransform(params []float64, partials bool) (*RigidBodyTransform, error) {
	if len(params) != NumRigidBodyParams {
		return nil, invariantf("expected %d rigid body parameters, got %d", NumRigidBodyParams, len(params))
	}
	cx, sx := math.Cos(params[AngleX]), math.Sin(params[AngleX])
	cy, sy := math.Cos(params[AngleY]), math.Sin(params[AngleY])
	cz, sz := math.Cos(params[AngleZ]), math.Sin(params[AngleZ])

	rb := &RigidBodyTransform{hasPartials: partials}
	rb.rows[0] = [4]float64{cy * cz, sx*sy*cz - cx*sz, cx*sy*cz + sx*sz, params[TranslationX]}
	rb.rows[1] = [4]float64{cy * sz, sx*sy*sz + cx*cz, cx*sy*sz - sx*cz, params[TranslationY]}
	rb.rows[2] = [4]float64{-sy, sx * cy, cx * cy, params[TranslationZ]}
	if !partials {
		return rb, nil
	}

	rb.angleRows[AngleX] = [3][3]float64{
		{0, cx*sy*cz + sx*sz, -sx*sy*cz + cx*sz},
		{0, cx*sy*sz - sx*cz, -sx*sy*sz - cx*cz},
		{0, cx * cy, -sx * cy},
	}
	rb.angleRows[AngleY] = [3][3]float64{
		{-sy * cz, sx * cy * cz, cx * cy * cz},
		{-sy * sz, sx * cy * sz, cx * cy * sz},
		{-cy, -sx * sy, -cx * sy},
	}
	rb.angleRows[AngleZ] = [3][3]float64{
		{-cy * sz, -sx*sy*sz - cx*cz, -cx*sy*sz + sx*cz},
		{cy * cz, sx*sy*cz - cx*sz, cx*sy*cz + sx*sz},
		{0, 0, 0},
	}
	return rb, nil
}

func checkBatch(vecs ...[]float64) (int, error) {
	n := len(vecs[0])
	if n == 0 {
		return 0, invariantf("empty point batch")
	}
	for i, v := range vecs[1:] {
		if len(v) != n {
			return 0, invariantf("vector %d has length %d, expected %d", i+1, len(v), n)
		}
	}
	return n, nil
}

func checkChannels(n, channels int, parts ...[][]float64) error {
	for i, p := range parts {
		if len(p) != channels {
			return invariantf("derivative output %d has %d channels, expected %d", i, len(p), channels)
		}
		for j, ch := range p {
			if len(ch) != n {
				return invariantf("derivative output %d channel %d has length %d, expected %d", i, j, len(ch), n)
			}
		}
	}
	return nil
}

// Apply writes R*source + t into target.
func (rb *RigidBodyTransform) Apply(sourceX, sourceY, sourceZ, targetX, targetY, targetZ []float64) error {
	n, err := checkBatch(sourceX, sourceY, sourceZ, targetX, targetY, targetZ)
	if err != nil {
		return err
	}
	rx, ry, rz := &rb.rows[0], &rb.rows[1], &rb.rows[2]
	for i := 0; i < n; i++ {
		x, y, z := sourceX[i], sourceY[i], sourceZ[i]
		targetX[i] = rx[0]*x + rx[1]*y + rx[2]*z + rx[3]
		targetY[i] = ry[0]*x + ry[1]*y + ry[2]*z + ry[3]
		targetZ[i] = rz[0]*x + rz[1]*y + rz[2]*z + rz[3]
	}
	return nil
}

// ApplyWithPartials is Apply that also writes the partials of the target coordinates with
// respect to each of the NumRigidBodyParams parameters. Partials of the source coordinates
// with respect to anything else are taken to be zero.
func (rb *RigidBodyTransform) ApplyWithPartials(
	sourceX, sourceY, sourceZ, targetX, targetY, targetZ []float64,
	targetDx, targetDy, targetDz [][]float64,
) error {
	if !rb.hasPartials {
		return invariantf("rigid body transform was built without partials")
	}
	n, err := checkBatch(sourceX, sourceY, sourceZ, targetX, targetY, targetZ)
	if err != nil {
		return err
	}
	if err := checkChannels(n, NumRigidBodyParams, targetDx, targetDy, targetDz); err != nil {
		return err
	}
	for a := AngleX; a <= AngleZ; a++ {
		dx, dy, dz := &rb.angleRows[a][0], &rb.angleRows[a][1], &rb.angleRows[a][2]
		for i := 0; i < n; i++ {
			x, y, z := sourceX[i], sourceY[i], sourceZ[i]
			targetDx[a][i] = dx[0]*x + dx[1]*y + dx[2]*z
			targetDy[a][i] = dy[0]*x + dy[1]*y + dy[2]*z
			targetDz[a][i] = dz[0]*x + dz[1]*y + dz[2]*z
		}
	}
	for t := TranslationX; t <= TranslationZ; t++ {
		fill(targetDx[t], 0)
		fill(targetDy[t], 0)
		fill(targetDz[t], 0)
	}
	fill(targetDx[TranslationX], 1)
	fill(targetDy[TranslationY], 1)
	fill(targetDz[TranslationZ], 1)
	// last, so that target may alias source
	return rb.Apply(sourceX, sourceY, sourceZ, targetX, targetY, targetZ)
}

func fill(v []float64, value float64) {
	for i := range v {
		v[i] = value
	}
}

// TransformPoint applies the transform to a single point.
func (rb *RigidBodyTransform) TransformPoint(p r3.Vector) r3.Vector {
	rx, ry, rz := &rb.rows[0], &rb.rows[1], &rb.rows[2]
	return r3.Vector{
		X: rx[0]*p.X + rx[1]*p.Y + rx[2]*p.Z + rx[3],
		Y: ry[0]*p.X + ry[1]*p.Y + ry[2]*p.Z + ry[3],
		Z: rz[0]*p.X + rz[1]*p.Y + rz[2]*p.Z + rz[3],
	}
}

// Matrix returns the transform as a 4x4 homogeneous matrix.
func (rb *RigidBodyTransform) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i, row := range rb.rows {
		m.SetRow(i, row[:])
	}
	m.Set(3, 3, 1)
	return m
}

// RotTrans3D transforms a batch of points by the rigid body motion params. Derivatives are
// computed when targetDx has any channels, in which case all three derivative outputs must have
// exactly NumRigidBodyParams channels of the batch length.
func RotTrans3D(
	sourceX, sourceY, sourceZ, targetX, targetY, targetZ, params []float64,
	targetDx, targetDy, targetDz [][]float64,
) error {
	partials := len(targetDx) > 0
	rb, err := NewRigidBodyTransform(params, partials)
	if err != nil {
		return err
	}
	if partials {
		return rb.ApplyWithPartials(sourceX, sourceY, sourceZ, targetX, targetY, targetZ, targetDx, targetDy, targetDz)
	}
	return rb.Apply(sourceX, sourceY, sourceZ, targetX, targetY, targetZ)
}

package camerasystem

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/utils"
)

// CameraToCameraProjection maps the source camera image points (srcX, srcY) onto the target
// camera image, writing tgtX and tgtY. The source points are placed in 3D with the shape
// parameters params (see camera.SensorToCam) and, when rigidBodyParams is not empty, moved by
// that rigid body motion in world coordinates before being seen by the target camera.
//
// Partials are computed when tgtDx has channels. With rigid body parameters there are
// NumRigidBodyParams channels holding the partials with respect to the motion only; without
// them there are camera.NumShapeParams channels holding the partials with respect to the shape
// parameters. tgtDy must have the same layout and every channel the batch length.
func (s *System) CameraToCameraProjection(
	sourceID, targetID int,
	srcX, srcY, tgtX, tgtY, params []float64,
	tgtDx, tgtDy [][]float64,
	rigidBodyParams []float64,
) error {
	src, tgt, n, err := s.checkProjection(sourceID, targetID, srcX, srcY, tgtX, tgtY, params, rigidBodyParams)
	if err != nil {
		return err
	}
	rigid := len(rigidBodyParams) > 0
	partials := len(tgtDx) > 0
	if partials {
		channels := camera.NumShapeParams
		if rigid {
			channels = NumRigidBodyParams
		}
		if err := checkChannels(n, channels, tgtDx, tgtDy); err != nil {
			return err
		}
	} else if len(tgtDy) > 0 {
		return invariantf("tgtDy has %d channels but tgtDx has none", len(tgtDy))
	}
	if n == 0 {
		return nil
	}

	p := newProjectionScratch(n)
	if err := src.ImageToSensor(srcX, srcY, p.sensX, p.sensY); err != nil {
		return errors.Wrap(err, "source camera")
	}
	if !partials {
		return p.project(src, tgt, params, rigidBodyParams, tgtX, tgtY)
	}

	var worldDx, worldDy, worldDz [][]float64
	if rigid {
		if err := src.SensorToCam(p.sensX, p.sensY, params, p.camX, p.camY, p.camZ); err != nil {
			return errors.Wrap(err, "source camera")
		}
		if err := src.CamToWorld(p.camX, p.camY, p.camZ, p.worldX, p.worldY, p.worldZ); err != nil {
			return errors.Wrap(err, "source camera")
		}
		rb, err := NewRigidBodyTransform(rigidBodyParams, true)
		if err != nil {
			return err
		}
		worldDx, worldDy, worldDz = newChannels(NumRigidBodyParams, n), newChannels(NumRigidBodyParams, n), newChannels(NumRigidBodyParams, n)
		if err := rb.ApplyWithPartials(
			p.worldX, p.worldY, p.worldZ, p.worldX, p.worldY, p.worldZ, worldDx, worldDy, worldDz,
		); err != nil {
			return err
		}
	} else {
		camDx, camDy, camDz := newChannels(camera.NumShapeParams, n), newChannels(camera.NumShapeParams, n), newChannels(camera.NumShapeParams, n)
		if err := src.SensorToCamWithPartials(p.sensX, p.sensY, params, p.camX, p.camY, p.camZ, camDx, camDy, camDz); err != nil {
			return errors.Wrap(err, "source camera")
		}
		worldDx, worldDy, worldDz = newChannels(camera.NumShapeParams, n), newChannels(camera.NumShapeParams, n), newChannels(camera.NumShapeParams, n)
		if err := src.CamToWorldWithPartials(
			p.camX, p.camY, p.camZ, camDx, camDy, camDz, p.worldX, p.worldY, p.worldZ, worldDx, worldDy, worldDz,
		); err != nil {
			return errors.Wrap(err, "source camera")
		}
	}

	channels := len(worldDx)
	camDx, camDy, camDz := newChannels(channels, n), newChannels(channels, n), newChannels(channels, n)
	if err := tgt.WorldToCamWithPartials(
		p.worldX, p.worldY, p.worldZ, worldDx, worldDy, worldDz, p.camX, p.camY, p.camZ, camDx, camDy, camDz,
	); err != nil {
		return errors.Wrap(err, "target camera")
	}
	sensDx, sensDy := newChannels(channels, n), newChannels(channels, n)
	if err := tgt.CamToSensorWithPartials(p.camX, p.camY, p.camZ, camDx, camDy, camDz, p.sensX, p.sensY, sensDx, sensDy); err != nil {
		return errors.Wrap(err, "target camera")
	}
	if err := tgt.SensorToImageWithPartials(p.sensX, p.sensY, sensDx, sensDy, tgtX, tgtY, tgtDx, tgtDy); err != nil {
		return errors.Wrap(err, "target camera")
	}
	return nil
}

// ProjectPoint projects a single source image point into the target camera.
func (s *System) ProjectPoint(sourceID, targetID int, pt r2.Point, params []float64) (r2.Point, error) {
	tgtX, tgtY := make([]float64, 1), make([]float64, 1)
	if err := s.CameraToCameraProjection(
		sourceID, targetID, []float64{pt.X}, []float64{pt.Y}, tgtX, tgtY, params, nil, nil, nil,
	); err != nil {
		return r2.Point{}, err
	}
	return r2.Point{X: tgtX[0], Y: tgtY[0]}, nil
}

// ProjectParallel is CameraToCameraProjection without partials, with the batch split across
// utils.ParallelFactor workers. The first failing worker cancels the others.
func (s *System) ProjectParallel(
	ctx context.Context,
	sourceID, targetID int,
	srcX, srcY, tgtX, tgtY, params, rigidBodyParams []float64,
) error {
	_, _, n, err := s.checkProjection(sourceID, targetID, srcX, srcY, tgtX, tgtY, params, rigidBodyParams)
	if err != nil {
		return err
	}
	s.logger.Debugw("projecting in parallel", "source", sourceID, "target", targetID, "points", n,
		"workers", utils.ParallelFactor)
	return utils.GroupWorkParallel(ctx, n, func(ctx context.Context, groupNum, from, to int) error {
		if err := s.CameraToCameraProjection(
			sourceID, targetID, srcX[from:to], srcY[from:to], tgtX[from:to], tgtY[from:to],
			params, nil, nil, rigidBodyParams,
		); err != nil {
			return errors.Wrapf(err, "points [%d, %d)", from, to)
		}
		return ctx.Err()
	})
}

func (s *System) checkProjection(
	sourceID, targetID int,
	srcX, srcY, tgtX, tgtY, params, rigidBodyParams []float64,
) (*camera.Camera, *camera.Camera, int, error) {
	if len(params) != camera.NumShapeParams {
		return nil, nil, 0, invariantf("expected %d shape parameters, got %d", camera.NumShapeParams, len(params))
	}
	src, err := s.Camera(sourceID)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "source camera")
	}
	tgt, err := s.Camera(targetID)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "target camera")
	}
	n := len(srcX)
	if len(srcY) != n || len(tgtX) != n || len(tgtY) != n {
		return nil, nil, 0, invariantf("coordinate batches differ in length: %d, %d, %d, %d",
			len(srcX), len(srcY), len(tgtX), len(tgtY))
	}
	if len(rigidBodyParams) > 0 && len(rigidBodyParams) != NumRigidBodyParams {
		return nil, nil, 0, invariantf("expected %d rigid body parameters, got %d", NumRigidBodyParams, len(rigidBodyParams))
	}
	return src, tgt, n, nil
}

// projectionScratch holds the intermediate coordinates of one projection call.
type projectionScratch struct {
	sensX, sensY           []float64
	camX, camY, camZ       []float64
	worldX, worldY, worldZ []float64
}

func newProjectionScratch(n int) *projectionScratch {
	buf := make([]float64, 8*n)
	return &projectionScratch{
		sensX: buf[0:n], sensY: buf[n : 2*n],
		camX: buf[2*n : 3*n], camY: buf[3*n : 4*n], camZ: buf[4*n : 5*n],
		worldX: buf[5*n : 6*n], worldY: buf[6*n : 7*n], worldZ: buf[7*n : 8*n],
	}
}

// project runs the value only pipeline from the sensor coordinates already in p.
func (p *projectionScratch) project(src, tgt *camera.Camera, params, rigidBodyParams, tgtX, tgtY []float64) error {
	if err := src.SensorToCam(p.sensX, p.sensY, params, p.camX, p.camY, p.camZ); err != nil {
		return errors.Wrap(err, "source camera")
	}
	if err := src.CamToWorld(p.camX, p.camY, p.camZ, p.worldX, p.worldY, p.worldZ); err != nil {
		return errors.Wrap(err, "source camera")
	}
	if len(rigidBodyParams) > 0 {
		rb, err := NewRigidBodyTransform(rigidBodyParams, false)
		if err != nil {
			return err
		}
		if err := rb.Apply(p.worldX, p.worldY, p.worldZ, p.worldX, p.worldY, p.worldZ); err != nil {
			return err
		}
	}
	if err := tgt.WorldToCam(p.worldX, p.worldY, p.worldZ, p.camX, p.camY, p.camZ); err != nil {
		return errors.Wrap(err, "target camera")
	}
	if err := tgt.CamToSensor(p.camX, p.camY, p.camZ, p.sensX, p.sensY); err != nil {
		return errors.Wrap(err, "target camera")
	}
	if err := tgt.SensorToImage(p.sensX, p.sensY, tgtX, tgtY); err != nil {
		return errors.Wrap(err, "target camera")
	}
	return nil
}

func newChannels(channels, n int) [][]float64 {
	buf := make([]float64, channels*n)
	out := make([][]float64, channels)
	for i := range out {
		out[i] = buf[i*n : (i+1)*n]
	}
	return out
}

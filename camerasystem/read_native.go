package camerasystem

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/logging"
	"go.viam.com/calibration/paramlist"
)

// Field names of the native calibration format.
const (
	nativeMarker          = "DICe_XML_Calibration_File"
	systemTypeField       = "system_type_3D"
	imageHeightWidthField = "IMAGE_HEIGHT_WIDTH"
	distortionModelField  = "LENS_DISTORTION_MODEL"
	rotationMatrixList    = "rotation_3x3_matrix"
	user6Field            = "user_6_param_transform"
	user4x4List           = "user_4x4_param_transform"
	cameraIDField         = "CAMERA_ID"
	pixelDepthField       = "PIXEL_DEPTH"
	lensField             = "LENS"
	commentsField         = "COMMENTS"
	txField               = "TX"
	tyField               = "TY"
	tzField               = "TZ"
	alphaField            = "ALPHA"
	betaField             = "BETA"
	gammaField            = "GAMMA"
)

func cameraListName(i int) string {
	return fmt.Sprintf("CAMERA %d", i)
}

func rowName(i int) string {
	return fmt.Sprintf("ROW %d", i)
}

// readNative reads the native parameter list format. A file that is not a parameter list, or
// one without the format marker, is reported as not matched. A file that cannot be opened or
// read is an error.
func readNative(path string, maxCameras int, logger logging.Logger) (*calibration, bool, error) {
	params, err := paramlist.ReadFile(path)
	if err != nil {
		if !errors.Is(err, paramlist.ErrMalformedDocument) {
			return nil, false, errors.Wrap(err, "cannot read calibration file")
		}
		logger.Debugw("not a parameter list", "error", err)
		return nil, false, nil
	}
	if !params.IsParameter(nativeMarker) {
		logger.Debugw("parameter list without format marker", "marker", nativeMarker)
		return nil, false, nil
	}

	typeName, err := params.String(systemTypeField)
	if err != nil {
		return nil, false, malformedf("calibration file missing %s", systemTypeField)
	}
	systemType, err := SystemTypeFromString(typeName)
	if err != nil {
		return nil, false, err
	}
	logger.Debugw("found system type", "system_type", systemType)
	cal := &calibration{systemType: systemType}

	for i := 0; ; i++ {
		sub, ok := params.Sublist(cameraListName(i))
		if !ok {
			break
		}
		if i >= maxCameras-1 {
			return nil, false, invariantf("too many cameras defined in the calibration file, at most %d allowed", maxCameras-1)
		}
		info, err := readNativeCamera(sub, i, logger)
		if err != nil {
			return nil, false, errors.Wrapf(err, "%s", cameraListName(i))
		}
		cal.cameras = append(cal.cameras, info)
	}

	if params.IsParameter(user6Field) {
		values, err := params.FloatArray(user6Field)
		if err != nil {
			return nil, false, errors.Wrap(ErrMalformedInput, err.Error())
		}
		if len(values) != NumUser6Params {
			return nil, false, malformedf("%s needs %d values, got %d", user6Field, NumUser6Params, len(values))
		}
		if i := firstNonFinite(values); i >= 0 {
			return nil, false, malformedf("%s value %d is not finite", user6Field, i)
		}
		cal.user6 = values
		logger.Debugw("found user transform", "field", user6Field, "values", values)
	}
	if rows, ok := params.Sublist(user4x4List); ok {
		m, err := readMatrixRows(rows, 4, 4)
		if err != nil {
			return nil, false, errors.Wrap(err, user4x4List)
		}
		cal.user4x4 = m
		logger.Debugw("found user transform", "field", user4x4List)
	}
	return cal, true, nil
}

func readNativeCamera(params *paramlist.List, index int, logger logging.Logger) (camera.Info, error) {
	var info camera.Info
	if !params.IsParameter(imageHeightWidthField) {
		return info, malformedf("calibration file missing %s", imageHeightWidthField)
	}
	if !params.IsParameter(distortionModelField) {
		return info, malformedf("calibration file missing %s", distortionModelField)
	}

	modelName, err := params.String(distortionModelField)
	if err != nil {
		return info, errors.Wrap(ErrMalformedInput, err.Error())
	}
	info.DistortionModel, err = camera.LensDistortionModelFromString(modelName)
	if err != nil {
		return info, errors.Wrap(ErrMalformedInput, err.Error())
	}

	size, err := params.FloatArray(imageHeightWidthField)
	if err != nil {
		return info, errors.Wrap(ErrMalformedInput, err.Error())
	}
	if len(size) != 2 {
		return info, malformedf("%s needs 2 values, got %d", imageHeightWidthField, len(size))
	}
	for _, v := range size {
		if v != math.Trunc(v) {
			return info, malformedf("%s must hold whole numbers, got %v", imageHeightWidthField, size)
		}
	}
	info.ImageHeight, info.ImageWidth = int(size[0]), int(size[1])
	logger.Debugw("found image size", "height", info.ImageHeight, "width", info.ImageWidth)

	for _, p := range camera.AllIntrinsicParams() {
		if !params.IsParameter(p.String()) {
			continue
		}
		v, err := params.Float(p.String())
		if err != nil {
			return info, errors.Wrap(ErrMalformedInput, err.Error())
		}
		info.Intrinsics[p] = v
		logger.Debugw("found intrinsic", "name", p.String(), "value", v)
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{{txField, &info.Tx}, {tyField, &info.Ty}, {tzField, &info.Tz}} {
		if _, err := readOptionalFloat(params, f.name, f.dst, logger); err != nil {
			return info, err
		}
	}

	// any one angle implies all three, missing ones default to zero
	var eulers [3]float64
	var hasEulers bool
	for i, name := range []string{alphaField, betaField, gammaField} {
		found, err := readOptionalFloat(params, name, &eulers[i], logger)
		if err != nil {
			return info, err
		}
		hasEulers = hasEulers || found
	}

	if rows, ok := params.Sublist(rotationMatrixList); ok {
		if hasEulers {
			return info, invariantf("cannot specify euler angles and a rotation matrix")
		}
		info.Rotation, err = readMatrixRows(rows, 3, 3)
		if err != nil {
			return info, errors.Wrap(err, rotationMatrixList)
		}
	} else if hasEulers {
		info.SetRotationFromEuler(eulers[0], eulers[1], eulers[2])
	}

	info.ID = cameraListName(index)
	if params.IsParameter(cameraIDField) {
		info.ID, _ = params.String(cameraIDField)
	}
	if params.IsParameter(pixelDepthField) {
		info.PixelDepth, err = params.Int(pixelDepthField)
		if err != nil {
			return info, errors.Wrap(ErrMalformedInput, err.Error())
		}
	}
	if params.IsParameter(lensField) {
		info.Lens, _ = params.String(lensField)
	}
	if params.IsParameter(commentsField) {
		info.Comments, _ = params.String(commentsField)
	}
	logger.Debugw("found camera", "id", info.ID, "distortion", info.DistortionModel.String())
	return info, nil
}

func readOptionalFloat(params *paramlist.List, name string, dst *float64, logger logging.Logger) (bool, error) {
	if !params.IsParameter(name) {
		return false, nil
	}
	v, err := params.Float(name)
	if err != nil {
		return false, errors.Wrap(ErrMalformedInput, err.Error())
	}
	*dst = v
	logger.Debugw("found extrinsic", "name", name, "value", v)
	return true, nil
}

// readMatrixRows reads parameters ROW 0..rows-1, each a list of cols numbers.
func readMatrixRows(params *paramlist.List, rows, cols int) (*mat.Dense, error) {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		if !params.IsParameter(rowName(i)) {
			return nil, malformedf("missing %s", rowName(i))
		}
		values, err := params.FloatArray(rowName(i))
		if err != nil {
			return nil, errors.Wrap(ErrMalformedInput, err.Error())
		}
		if len(values) != cols {
			return nil, malformedf("%s needs %d values, got %d", rowName(i), cols, len(values))
		}
		if firstNonFinite(values) >= 0 {
			return nil, malformedf("%s has a non finite value", rowName(i))
		}
		m.SetRow(i, values)
	}
	return m, nil
}

func firstNonFinite(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

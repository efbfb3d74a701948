package camerasystem

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/paramlist"
	"go.viam.com/calibration/utils"
)

var (
	rotationRowComments = []string{"R11 R12 R13", "R21 R22 R23", "R31 R32 R33"}
	user4x4RowComments  = []string{"R11 R12 R13 TX", "R21 R22 R23 TY", "R31 R32 R33 TZ", "0   0   0   1"}
)

// WriteCalibrationFile writes the system to path in the native format. The file is replaced
// only once the whole document has been written.
func (s *System) WriteCalibrationFile(path string) error {
	s.logger.Debugw("writing calibration file", "path", path, "cameras", len(s.cameras))
	if err := utils.WriteFileAtomic(path, s.Write); err != nil {
		return errors.Wrapf(err, "error writing calibration file %q", path)
	}
	return nil
}

// Write encodes the system in the native format. Euler angles are never written; the rotation
// matrix always is. Zero valued intrinsics and translations are omitted.
func (s *System) Write(w io.Writer) error {
	doc, err := s.paramList()
	if err != nil {
		return err
	}
	return doc.Write(w)
}

func (s *System) paramList() (*paramlist.List, error) {
	if s.systemType == UnknownSystem {
		return nil, errors.Wrap(ErrUnsupportedFormat, "cannot write a calibration of unknown system type")
	}
	doc := paramlist.New("")
	doc.AddComment("calibration file in the native parameter list format")
	doc.AddComment(nativeMarker + " set to true marks this file as a native calibration file")
	doc.SetBool(nativeMarker, true)

	typeNames := lo.Map(KnownSystemTypes(), func(t SystemType, _ int) string { return t.String() })
	doc.AddComment("type of 3D system, valid values are: " + strings.Join(typeNames, " "))
	doc.SetString(systemTypeField, s.systemType.String())

	s.addHeaderComments(doc)
	for i, cam := range s.cameras {
		s.logger.Debugw("writing camera", "index", i, "id", cam.ID())
		writeCamera(doc.AddSublist(cameraListName(i)), cam)
	}

	if s.user6 != nil {
		doc.AddComment("user supplied 6 parameter transform, independent of the camera parameters (optional)")
		doc.SetString(user6Field, paramlist.FormatFloatArray(s.user6))
	}
	if s.user4x4 != nil {
		doc.AddComment("user supplied 4x4 transform, independent of the camera parameters (optional)")
		writeMatrixRows(doc.AddSublist(user4x4List), s.user4x4, user4x4RowComments)
	}
	return doc, nil
}

func (s *System) addHeaderComments(doc *paramlist.List) {
	intrinsicNames := lo.Map(camera.AllIntrinsicParams(), func(p camera.IntrinsicParam, _ int) string { return p.String() })
	modelNames := lo.Map(camera.AllLensDistortionModels(), func(m camera.LensDistortionModel, _ int) string { return m.String() })
	for _, comment := range []string{
		"camera intrinsic parameters, zero valued parameters may be omitted",
		fmt.Sprintf("up to %d cameras, each in a sublist named CAMERA <i> numbered from 0 without gaps", s.maxCameras-1),
		"valid camera intrinsic parameter names are: " + strings.Join(intrinsicNames, " "),
		"CX,CY image center (pix), FX,FY pinhole distances (pix), FS skew",
		"K1-K6 radial distortion, P1-P2 tangential distortion, S1-S4 thin prism distortion, T1,T2 Scheimpflug tilt",
		"valid values for " + distortionModelField + " are: " + strings.Join(modelNames, " "),
		"K1R1_K2R2_K3R3 scales by K1*R + K2*R^2 + K3*R^3",
		"K1R2_K2R4_K3R6 scales by K1*R^2 + K2*R^4 + K3*R^6",
		"K1R3_K2R5_K3R7 scales by K1*R^3 + K2*R^5 + K3*R^7",
		"camera extrinsic parameters: translations TX TY TZ and either the euler angles ALPHA BETA GAMMA " +
			"or a " + rotationMatrixList + " sublist with ROW 0..2, not both",
		"without euler angles or a rotation matrix the rotation is the identity",
		"additional camera fields: " + strings.Join([]string{
			cameraIDField, imageHeightWidthField + " {h, w}", pixelDepthField, lensField, commentsField,
		}, ", "),
	} {
		doc.AddComment(comment)
	}
}

func writeCamera(list *paramlist.List, cam *camera.Camera) {
	list.SetString(cameraIDField, cam.ID())
	intrinsics := cam.Intrinsics()
	for _, p := range camera.AllIntrinsicParams() {
		if intrinsics[p] != 0 {
			list.SetFloat(p.String(), intrinsics[p])
		}
	}
	list.SetString(distortionModelField, cam.DistortionModel().String())

	tx, ty, tz := cam.Translation()
	for _, t := range []struct {
		name  string
		value float64
	}{{txField, tx}, {tyField, ty}, {tzField, tz}} {
		if t.value != 0 {
			list.SetFloat(t.name, t.value)
		}
	}

	list.AddComment("3x3 world to camera rotation, combined with TX TY TZ it maps world coordinates to this camera")
	writeMatrixRows(list.AddSublist(rotationMatrixList), cam.RotationMatrix(), rotationRowComments)

	if h, w := cam.ImageSize(); h != 0 && w != 0 {
		list.SetString(imageHeightWidthField, paramlist.FormatFloatArray([]float64{float64(h), float64(w)}))
	}
	if depth := cam.PixelDepth(); depth != 0 {
		list.SetInt(pixelDepthField, depth)
	}
	if lens := cam.Lens(); lens != "" {
		list.SetString(lensField, lens)
	}
	if comments := cam.Comments(); comments != "" {
		list.SetString(commentsField, comments)
	}
}

func writeMatrixRows(list *paramlist.List, m *mat.Dense, comments []string) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		list.SetString(rowName(i), paramlist.FormatFloatArray(mat.Row(nil, i, m)))
		if i < len(comments) {
			list.AddComment(comments[i])
		}
	}
}

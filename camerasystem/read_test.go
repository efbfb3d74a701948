package camerasystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/logging"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

func nativeDoc(systemType string, body ...string) string {
	return `<?xml version="1.0"?>
<ParameterList>
  <Parameter name="DICe_XML_Calibration_File" type="bool" value="true" />
  <Parameter name="system_type_3D" type="string" value="` + systemType + `" />
` + strings.Join(body, "") + "</ParameterList>\n"
}

func nativeCamera(index int, extra ...string) string {
	return fmt.Sprintf(`  <ParameterList name="CAMERA %d">
    <Parameter name="CX" type="double" value="800" />
    <Parameter name="CY" type="double" value="600" />
    <Parameter name="FX" type="double" value="3500" />
    <Parameter name="FY" type="double" value="3400" />
    <Parameter name="LENS_DISTORTION_MODEL" type="string" value="NONE" />
    <Parameter name="IMAGE_HEIGHT_WIDTH" type="string" value="{ 1200, 1600 }" />
%s  </ParameterList>
`, index, strings.Join(extra, ""))
}

func param(name, typ, value string) string {
	return fmt.Sprintf("    <Parameter name=%q type=%q value=%q />\n", name, typ, value)
}

func rotationRows(rows ...string) string {
	var sb strings.Builder
	sb.WriteString(`    <ParameterList name="rotation_3x3_matrix">` + "\n")
	for i, row := range rows {
		sb.WriteString(param(fmt.Sprintf("ROW %d", i), "string", row))
	}
	sb.WriteString("    </ParameterList>\n")
	return sb.String()
}

func TestReadNative(t *testing.T) {
	doc := nativeDoc("GENERIC_SYSTEM",
		nativeCamera(0,
			param("CAMERA_ID", "string", "left"),
			param("K1", "double", "-0.125"),
			param("BETA", "double", "10"),
			param("PIXEL_DEPTH", "int", "012"),
			param("LENS", "string", "35mm"),
			param("COMMENTS", "string", "reference camera"),
		),
		nativeCamera(1,
			param("TX", "double", "250"),
			param("TZ", "double", "-12.5"),
			rotationRows("{ 0, 1, 0 }", "{ -1, 0, 0 }", "{ 0, 0, 1 }"),
		),
		`  <Parameter name="user_6_param_transform" type="string" value="{ 0.1, 0.2, 0.3, 1, 2, 3 }" />
  <ParameterList name="user_4x4_param_transform">
    <Parameter name="ROW 0" type="string" value="{ 1, 0, 0, 5 }" />
    <Parameter name="ROW 1" type="string" value="{ 0, 1, 0, 6 }" />
    <Parameter name="ROW 2" type="string" value="{ 0, 0, 1, 7 }" />
    <Parameter name="ROW 3" type="string" value="{ 0, 0, 0, 1 }" />
  </ParameterList>
`)
	path := writeTestFile(t, "calibration.xml", doc)

	logger, logs := logging.NewObservedTestLogger(t)
	s, err := NewSystemFromFile(path, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.SystemType(), test.ShouldEqual, GenericSystem)
	test.That(t, s.NumCameras(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("loaded calibration").Len(), test.ShouldEqual, 1)

	left, err := s.Camera(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left.ID(), test.ShouldEqual, "left")
	test.That(t, left.DistortionModel(), test.ShouldEqual, camera.NoDistortion)
	k1, err := left.Intrinsic(camera.K1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k1, test.ShouldEqual, -0.125)
	h, w := left.ImageSize()
	test.That(t, h, test.ShouldEqual, 1200)
	test.That(t, w, test.ShouldEqual, 1600)
	test.That(t, left.PixelDepth(), test.ShouldEqual, 12)
	test.That(t, left.Lens(), test.ShouldEqual, "35mm")
	test.That(t, left.Comments(), test.ShouldEqual, "reference camera")
	test.That(t, mat.EqualApprox(left.RotationMatrix(), camera.RotationFromEuler(0, 10, 0), 1e-15), test.ShouldBeTrue)

	right, err := s.Camera(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, right.ID(), test.ShouldEqual, "CAMERA 1")
	tx, ty, tz := right.Translation()
	test.That(t, []float64{tx, ty, tz}, test.ShouldResemble, []float64{250, 0, -12.5})
	test.That(t, right.RotationMatrix().RawMatrix().Data, test.ShouldResemble, []float64{0, 1, 0, -1, 0, 0, 0, 0, 1})

	user6, ok := s.User6Transform()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, user6, test.ShouldResemble, []float64{0.1, 0.2, 0.3, 1, 2, 3})
	user4x4, ok := s.User4x4Transform()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mat.Col(nil, 3, user4x4), test.ShouldResemble, []float64{5, 6, 7, 1})
}

func TestReadNativeDensityScan(t *testing.T) {
	path := writeTestFile(t, "cal.xml", nativeDoc("GENERIC_SYSTEM", nativeCamera(0), nativeCamera(1), nativeCamera(3)))
	s, err := ReadCalibrationFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.NumCameras(), test.ShouldEqual, 2)
	test.That(t, s.Cameras()[1].ID(), test.ShouldEqual, "CAMERA 1")
}

func TestReadNativeCameraCap(t *testing.T) {
	path := writeTestFile(t, "cal.xml", nativeDoc("GENERIC_SYSTEM", nativeCamera(0), nativeCamera(1), nativeCamera(2)))
	_, err := NewSystemFromFile(path, WithMaxCameras(3))
	test.That(t, errors.Is(err, ErrInvariantViolation), test.ShouldBeTrue)

	s, err := NewSystemFromFile(path, WithMaxCameras(4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.NumCameras(), test.ShouldEqual, 3)
}

func TestReadNativeErrors(t *testing.T) {
	identity := rotationRows("{ 1, 0, 0 }", "{ 0, 1, 0 }", "{ 0, 0, 1 }")
	for _, tc := range []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "euler angles and rotation matrix",
			doc:  nativeDoc("GENERIC_SYSTEM", nativeCamera(0, param("GAMMA", "double", "3"), identity)),
			want: ErrInvariantViolation,
		},
		{
			name: "missing system type",
			doc: strings.Replace(nativeDoc("GENERIC_SYSTEM", nativeCamera(0)),
				`<Parameter name="system_type_3D" type="string" value="GENERIC_SYSTEM" />`, "", 1),
			want: ErrMalformedInput,
		},
		{
			name: "unknown system type",
			doc:  nativeDoc("STEREO_RIG", nativeCamera(0)),
			want: ErrMalformedInput,
		},
		{
			name: "missing image size",
			doc: nativeDoc("GENERIC_SYSTEM", strings.Replace(nativeCamera(0),
				`<Parameter name="IMAGE_HEIGHT_WIDTH" type="string" value="{ 1200, 1600 }" />`, "", 1)),
			want: ErrMalformedInput,
		},
		{
			name: "short image size",
			doc: nativeDoc("GENERIC_SYSTEM", strings.Replace(nativeCamera(0),
				"{ 1200, 1600 }", "{ 1200 }", 1)),
			want: ErrMalformedInput,
		},
		{
			name: "bad image size list",
			doc: nativeDoc("GENERIC_SYSTEM", strings.Replace(nativeCamera(0),
				"{ 1200, 1600 }", "1200 1600", 1)),
			want: ErrMalformedInput,
		},
		{
			name: "unknown distortion model",
			doc: nativeDoc("GENERIC_SYSTEM", strings.Replace(nativeCamera(0),
				`value="NONE"`, `value="FISHEYE"`, 1)),
			want: ErrMalformedInput,
		},
		{
			name: "non numeric intrinsic",
			doc:  nativeDoc("GENERIC_SYSTEM", nativeCamera(0, param("K2", "double", "lots"))),
			want: ErrMalformedInput,
		},
		{
			name: "missing rotation row",
			doc:  nativeDoc("GENERIC_SYSTEM", nativeCamera(0, rotationRows("{ 1, 0, 0 }", "{ 0, 1, 0 }"))),
			want: ErrMalformedInput,
		},
		{
			name: "short rotation row",
			doc:  nativeDoc("GENERIC_SYSTEM", nativeCamera(0, rotationRows("{ 1, 0, 0 }", "{ 0, 1 }", "{ 0, 0, 1 }"))),
			want: ErrMalformedInput,
		},
		{
			name: "short user transform",
			doc: nativeDoc("GENERIC_SYSTEM", nativeCamera(0),
				`  <Parameter name="user_6_param_transform" type="string" value="{ 1, 2, 3, 4, 5 }" />`+"\n"),
			want: ErrMalformedInput,
		},
		{
			name: "fractional image size",
			doc: nativeDoc("GENERIC_SYSTEM", strings.Replace(nativeCamera(0),
				"{ 1200, 1600 }", "{ 1200.9, 1600.5 }", 1)),
			want: ErrMalformedInput,
		},
		{
			name: "non finite user transform",
			doc: nativeDoc("GENERIC_SYSTEM", nativeCamera(0),
				`  <Parameter name="user_6_param_transform" type="string" value="{ 1, 2, NaN, 4, 5, 6 }" />`+"\n"),
			want: ErrMalformedInput,
		},
		{
			name: "infinite user transform",
			doc: nativeDoc("GENERIC_SYSTEM", nativeCamera(0),
				`  <Parameter name="user_6_param_transform" type="string" value="{ 1, 2, 3, +Inf, 5, 6 }" />`+"\n"),
			want: ErrMalformedInput,
		},
		{
			name: "short user 4x4 row",
			doc: nativeDoc("GENERIC_SYSTEM", nativeCamera(0), `  <ParameterList name="user_4x4_param_transform">
    <Parameter name="ROW 0" type="string" value="{ 1, 0, 0, 5 }" />
    <Parameter name="ROW 1" type="string" value="{ 0, 1, 0 }" />
    <Parameter name="ROW 2" type="string" value="{ 0, 0, 1, 7 }" />
    <Parameter name="ROW 3" type="string" value="{ 0, 0, 0, 1 }" />
  </ParameterList>
`),
			want: ErrMalformedInput,
		},
		{
			name: "zero focal length",
			doc:  nativeDoc("GENERIC_SYSTEM", nativeCamera(0, param("FX", "double", "0"))),
			want: camera.ErrInvalidCamera,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSystemFromFile(writeTestFile(t, "cal.xml", tc.doc))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, tc.want), test.ShouldBeTrue)
			test.That(t, s, test.ShouldBeNil)
		})
	}
}

func TestReadUnsupported(t *testing.T) {
	_, err := NewSystemFromFile(writeTestFile(t, "cal.json", `{"cameras": []}`))
	test.That(t, errors.Is(err, ErrUnsupportedFormat), test.ShouldBeTrue)

	// a parameter list without the marker is not a native file
	noMarker := strings.Replace(nativeDoc("GENERIC_SYSTEM", nativeCamera(0)),
		`<Parameter name="DICe_XML_Calibration_File" type="bool" value="true" />`, "", 1)
	_, err = NewSystemFromFile(writeTestFile(t, "cal.cfg", noMarker))
	test.That(t, errors.Is(err, ErrUnsupportedFormat), test.ShouldBeTrue)
	_, err = NewSystemFromFile(writeTestFile(t, "cal.xml", noMarker))
	test.That(t, errors.Is(err, ErrMalformedInput), test.ShouldBeTrue)

	_, err = NewSystemFromFile(filepath.Join(t.TempDir(), "missing.xml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	_, err = NewSystemFromFile(t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadNativeUnreadable(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, matched, err := readNative(filepath.Join(t.TempDir(), "gone.cfg"), DefaultMaxCameras, logger)
	test.That(t, matched, test.ShouldBeFalse)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrUnsupportedFormat), test.ShouldBeFalse)

	_, matched, err = readNative(writeTestFile(t, "cal.cfg", "not xml at all"), DefaultMaxCameras, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matched, test.ShouldBeFalse)
}

const vic3dDoc = `<?xml version="1.0" encoding="UTF-8"?>
<CALIBRATION>
<POLYGONMASK WIDTH="1600" HEIGHT="1200" />
<CAMERA ID="0" 800 600 3500 3400 0 -0.1 0.01 0 ORIENTATION 0 0 0 0 0 0 />
<CAMERA ID="1" 810 590 3510 3390 0.5 -0.09 0.02 0 ORIENTATION 1.5 -12 0.3 250 -2 35 />
</CALIBRATION>
`

func TestReadVIC3D(t *testing.T) {
	s, err := NewSystemFromFile(writeTestFile(t, "cal.XML", vic3dDoc), WithLogger(logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.SystemType(), test.ShouldEqual, VIC3DSystem)
	test.That(t, s.NumCameras(), test.ShouldEqual, 2)

	for i, cam := range s.Cameras() {
		test.That(t, cam.ID(), test.ShouldEqual, fmt.Sprintf("CAMERA %d", i))
		test.That(t, cam.DistortionModel(), test.ShouldEqual, camera.K1R1K2R2K3R3)
		h, w := cam.ImageSize()
		test.That(t, h, test.ShouldEqual, 1200)
		test.That(t, w, test.ShouldEqual, 1600)
	}

	second := s.Cameras()[1]
	in := second.Intrinsics()
	test.That(t, in[camera.CX], test.ShouldEqual, 810.0)
	test.That(t, in[camera.FS], test.ShouldEqual, 0.5)
	test.That(t, in[camera.K2], test.ShouldEqual, 0.02)
	test.That(t, in[camera.P1], test.ShouldEqual, 0.0)
	tx, ty, tz := second.Translation()
	test.That(t, []float64{tx, ty, tz}, test.ShouldResemble, []float64{250, -2, 35})
	test.That(t, mat.EqualApprox(second.RotationMatrix(), camera.RotationFromEuler(1.5, -12, 0.3), 1e-15), test.ShouldBeTrue)
}

func TestReadVIC3DErrors(t *testing.T) {
	lines := strings.Split(vic3dDoc, "\n")
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{name: "missing polygon mask", doc: strings.Replace(vic3dDoc, lines[2]+"\n", "", 1)},
		{name: "one camera", doc: strings.Replace(vic3dDoc, lines[4]+"\n", "", 1)},
		{name: "three cameras", doc: strings.Replace(vic3dDoc, lines[4], lines[4]+"\n"+lines[4], 1)},
		{name: "camera index", doc: strings.Replace(vic3dDoc, `ID="1"`, `ID="10"`, 1)},
		{name: "short camera", doc: strings.Replace(vic3dDoc, "250 -2 35 />", "250 -2", 1)},
		{name: "missing orientation", doc: strings.Replace(vic3dDoc, "0 ORIENTATION 1.5", "0 ORIENT 1.5", 1)},
		{name: "bad number", doc: strings.Replace(vic3dDoc, "3510", "3510px", 1)},
		{name: "bad size", doc: strings.Replace(vic3dDoc, `HEIGHT="1200"`, `HEIGHT="tall"`, 1)},
		{name: "two polygon masks", doc: strings.Replace(vic3dDoc, lines[2], lines[2]+"\n"+strings.Replace(lines[2], "1600", "999", 1), 1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSystemFromFile(writeTestFile(t, "cal.xml", tc.doc))
			test.That(t, errors.Is(err, ErrMalformedInput), test.ShouldBeTrue)
		})
	}
}

func textDoc(extrinsics ...string) string {
	lines := []string{
		"# camera 0 intrinsics",
		"800", "600", "3500", "3400", "0", "-0.1", "0", "0",
		"# camera 1 intrinsics",
		"810", "590", "3510", "3390", "0.5", "-0.09  # K1", "0.02", "0",
		"# camera 1 extrinsics",
	}
	lines = append(lines, extrinsics...)
	lines = append(lines, "", "# image height and width", "1200", "1600")
	return strings.Join(lines, "\n") + "\n"
}

func TestReadText(t *testing.T) {
	t.Run("euler angles", func(t *testing.T) {
		s, err := NewSystemFromFile(writeTestFile(t, "cal.txt", textDoc("1.5", "-12", "0.3", "250", "-2", "35")))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.SystemType(), test.ShouldEqual, TextSystem)
		test.That(t, s.NumCameras(), test.ShouldEqual, 2)

		first, second := s.Cameras()[0], s.Cameras()[1]
		test.That(t, first.ID(), test.ShouldEqual, "CAMERA 0")
		test.That(t, mat.Equal(first.RotationMatrix(), camera.IdentityRotation()), test.ShouldBeTrue)
		tx, ty, tz := first.Translation()
		test.That(t, []float64{tx, ty, tz}, test.ShouldResemble, []float64{0, 0, 0})

		test.That(t, second.ID(), test.ShouldEqual, "CAMERA 1")
		test.That(t, second.Intrinsics()[camera.K1], test.ShouldEqual, -0.09)
		test.That(t, mat.EqualApprox(second.RotationMatrix(), camera.RotationFromEuler(1.5, -12, 0.3), 1e-15), test.ShouldBeTrue)
		tx, ty, tz = second.Translation()
		test.That(t, []float64{tx, ty, tz}, test.ShouldResemble, []float64{250, -2, 35})
		h, w := second.ImageSize()
		test.That(t, h, test.ShouldEqual, 1200)
		test.That(t, w, test.ShouldEqual, 1600)
	})

	t.Run("rotation matrix", func(t *testing.T) {
		s, err := NewSystemFromFile(writeTestFile(t, "cal.txt",
			textDoc("0", "1", "0", "-1", "0", "0", "0", "0", "1", "250", "-2", "35")))
		test.That(t, err, test.ShouldBeNil)
		second := s.Cameras()[1]
		test.That(t, second.RotationMatrix().RawMatrix().Data, test.ShouldResemble, []float64{0, 1, 0, -1, 0, 0, 0, 0, 1})
		tx, _, _ := second.Translation()
		test.That(t, tx, test.ShouldEqual, 250.0)
	})

	for _, tc := range []struct {
		name string
		doc  string
		want error
	}{
		{name: "too few values", doc: textDoc("1.5", "-12", "0.3", "250", "-2"), want: ErrMalformedInput},
		{name: "too many values", doc: textDoc("1.5", "-12", "0.3", "250", "-2", "35", "0"), want: ErrMalformedInput},
		{name: "two values on a line", doc: textDoc("1.5 -12", "0.3", "250", "-2", "35", "0"), want: ErrMalformedInput},
		{name: "non numeric", doc: textDoc("1.5", "-12", "0.3", "250", "-2", "far"), want: ErrMalformedInput},
		{name: "custom transform", doc: "TRANSFORM\n" + textDoc("1.5", "-12", "0.3", "250", "-2", "35"), want: ErrUnsupportedFormat},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSystemFromFile(writeTestFile(t, "cal.txt", tc.doc))
			test.That(t, errors.Is(err, tc.want), test.ShouldBeTrue)
		})
	}
}

package paramlist

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/calibration/utils"
)

const sampleDoc = `<?xml version="1.0"?>
<!-- a comment before the root -->
<ParameterList>
  <Parameter name="DICe_XML_Calibration_File" type="bool" value="true" />
  <Parameter name="system_type_3D" type="string" value="GENERIC_SYSTEM" />
  <ParameterList name="CAMERA 0">
    <!-- intrinsics -->
    <Parameter name="FX" type="double" value="3500.5" />
    <Parameter name="PIXEL_DEPTH" type="int" value="8" />
    <Parameter name="IMAGE_HEIGHT_WIDTH" type="string" value="{ 1200, 1600 }" />
  </ParameterList>
</ParameterList>
`

func TestRead(t *testing.T) {
	list, err := Read(strings.NewReader(sampleDoc))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, list.Name, test.ShouldEqual, "")

	marker, err := list.Bool("DICe_XML_Calibration_File")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, marker, test.ShouldBeTrue)

	systemType, err := list.String("system_type_3D")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, systemType, test.ShouldEqual, "GENERIC_SYSTEM")

	test.That(t, list.IsSublist("CAMERA 0"), test.ShouldBeTrue)
	test.That(t, list.IsSublist("CAMERA 1"), test.ShouldBeFalse)
	test.That(t, list.IsParameter("CAMERA 0"), test.ShouldBeFalse)

	cam, ok := list.Sublist("CAMERA 0")
	test.That(t, ok, test.ShouldBeTrue)
	fx, err := cam.Float("FX")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fx, test.ShouldEqual, 3500.5)
	depth, err := cam.Int("PIXEL_DEPTH")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, depth, test.ShouldEqual, 8)
	size, err := cam.FloatArray("IMAGE_HEIGHT_WIDTH")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldResemble, []float64{1200, 1600})

	_, err = cam.Float("FY")
	test.That(t, errors.Is(err, ErrMissingParameter), test.ShouldBeTrue)
	_, err = list.Float("system_type_3D")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadMalformed(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not xml", "camera 1 2 3"},
		{"wrong root", `<Parameter name="a" type="int" value="1"/>`},
		{"unclosed", `<ParameterList><ParameterList name="x">`},
		{"nameless parameter", `<ParameterList><Parameter type="int" value="1"/></ParameterList>`},
		{"foreign element", `<ParameterList><Camera/></ParameterList>`},
		{"two roots", `<ParameterList></ParameterList><ParameterList></ParameterList>`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.doc))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestParseFloatArray(t *testing.T) {
	values, err := ParseFloatArray("{ 1, -2.5, 3e2 }")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, values, test.ShouldResemble, []float64{1, -2.5, 300})

	values, err = ParseFloatArray("  {}  ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, values, test.ShouldHaveLength, 0)

	for _, bad := range []string{"", "1, 2", "{ 1, 2", "1, 2 }", "{ 1,, 2 }", "{ 1, x }", "{ , }"} {
		_, err := ParseFloatArray(bad)
		test.That(t, errors.Is(err, ErrMalformedArray), test.ShouldBeTrue)
	}
}

func TestFormatFloatArray(t *testing.T) {
	test.That(t, FormatFloatArray(nil), test.ShouldEqual, "{}")
	test.That(t, FormatFloatArray([]float64{1, 0.1, -3}), test.ShouldEqual, "{ 1, 0.1, -3 }")

	values := []float64{0.1 + 0.2, 1.0 / 3.0, -1e-17}
	parsed, err := ParseFloatArray(FormatFloatArray(values))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldResemble, values)
}

func TestIntIsDecimal(t *testing.T) {
	list := New("")
	list.SetString("PIXEL_DEPTH", " 010 ")
	list.SetString("hex", "0x10")
	list.SetString("fraction", "8.5")

	depth, err := list.Int("PIXEL_DEPTH")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, depth, test.ShouldEqual, 10)

	_, err = list.Int("hex")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = list.Int("fraction")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetters(t *testing.T) {
	list := New("")
	list.SetString("name", "first")
	list.SetString("name", "second")
	list.SetInt("count", 3)
	list.SetBool("flag", true)
	list.SetFloat("value", 0.25)

	params := list.Parameters()
	test.That(t, params, test.ShouldHaveLength, 4)
	test.That(t, params[0], test.ShouldResemble, Parameter{Name: "name", Type: TypeString, Value: "second"})
	test.That(t, params[1].Type, test.ShouldEqual, TypeInt)

	sub := list.AddSublist("CAMERA 0")
	test.That(t, list.AddSublist("CAMERA 0"), test.ShouldEqual, sub)
	test.That(t, list.Sublists(), test.ShouldHaveLength, 1)
}

func TestWriteRead(t *testing.T) {
	list := New("")
	list.AddComment("written by a test -- with dashes")
	list.SetBool("DICe_XML_Calibration_File", true)
	cam := list.AddSublist("CAMERA 0")
	cam.SetFloat("FX", 1.0/3.0)
	cam.SetString("LENS", `50mm "prime" <f/1.8> & more`)
	rows := cam.AddSublist("rotation_3x3_matrix")
	rows.SetString("ROW 0", FormatFloatArray([]float64{1, 0, 0}))

	var buf bytes.Buffer
	test.That(t, list.Write(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "<!-- written by a test - - with dashes -->")

	back, err := Read(&buf)
	test.That(t, err, test.ShouldBeNil)
	backCam, ok := back.Sublist("CAMERA 0")
	test.That(t, ok, test.ShouldBeTrue)
	fx, err := backCam.Float("FX")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fx, test.ShouldEqual, 1.0/3.0)
	lens, err := backCam.String("LENS")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lens, test.ShouldEqual, `50mm "prime" <f/1.8> & more`)
	backRows, ok := backCam.Sublist("rotation_3x3_matrix")
	test.That(t, ok, test.ShouldBeTrue)
	row, err := backRows.FloatArray("ROW 0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, row, test.ShouldResemble, []float64{1, 0, 0})
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.xml")
	list := New("")
	list.SetString("system_type_3D", "VIC3D")
	test.That(t, utils.WriteFileAtomic(path, list.Write), test.ShouldBeNil)

	back, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	systemType, err := back.String("system_type_3D")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, systemType, test.ShouldEqual, "VIC3D")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	test.That(t, err, test.ShouldNotBeNil)
}

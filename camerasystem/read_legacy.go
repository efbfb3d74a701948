package camerasystem

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/logging"
)

// legacyIntrinsicOrder is the order in which both legacy formats list a camera's intrinsics.
var legacyIntrinsicOrder = []camera.IntrinsicParam{
	camera.CX, camera.CY, camera.FX, camera.FY, camera.FS, camera.K1, camera.K2, camera.K3,
}

// legacyDistortionModel is the lens model assigned to every camera of a legacy file.
const legacyDistortionModel = camera.K1R1K2R2K3R3

const (
	vic3dSeparators = " \t<>\""
	textSeparators  = " \t<>"

	vic3dMaxCameraIndex  = 10
	vic3dMinCameraTokens = 19

	textValuesWithEulers = 24
	textValuesWithMatrix = 30
)

func tokenize(line, separators string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
}

// readTokenizedLines returns the non-empty tokenized lines of the file at path.
func readTokenizedLines(path, separators string) ([][]string, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var lines [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if tokens := tokenize(scanner.Text(), separators); len(tokens) > 0 {
			lines = append(lines, tokens)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func parseFloatToken(token, what string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, malformedf("invalid %s %q", what, token)
	}
	return v, nil
}

func parseIntToken(token, what string) (int, error) {
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, malformedf("invalid %s %q", what, token)
	}
	return v, nil
}

// readVIC3D reads a VIC-3D cal.xml file. Only the POLYGONMASK and CAMERA records are used:
//
//	<POLYGONMASK WIDTH="w" HEIGHT="h" ...
//	<CAMERA ID="i" cx cy fx fy fs k1 k2 k3 ORIENTATION alpha beta gamma tx ty tz ...
func readVIC3D(path string, _ int, logger logging.Logger) (*calibration, bool, error) {
	lines, err := readTokenizedLines(path, vic3dSeparators)
	if err != nil {
		return nil, false, err
	}

	var width, height int
	var seenMask bool
	var infos []camera.Info
	for _, tokens := range lines {
		switch tokens[0] {
		case "POLYGONMASK":
			if seenMask {
				return nil, false, malformedf("only one POLYGONMASK record is allowed")
			}
			seenMask = true
			if len(tokens) < 5 || tokens[1] != "WIDTH=" || tokens[3] != "HEIGHT=" {
				return nil, false, malformedf("POLYGONMASK record must read WIDTH= w HEIGHT= h")
			}
			if width, err = parseIntToken(tokens[2], "image width"); err != nil {
				return nil, false, err
			}
			if height, err = parseIntToken(tokens[4], "image height"); err != nil {
				return nil, false, err
			}
			logger.Debugw("found image size", "height", height, "width", width)
		case "CAMERA":
			if len(infos) > 1 {
				return nil, false, malformedf("only 2 CAMERA records are allowed")
			}
			info, err := parseVIC3DCamera(tokens)
			if err != nil {
				return nil, false, err
			}
			logger.Debugw("found camera", "id", info.ID)
			infos = append(infos, info)
		}
	}
	if height <= 0 || width <= 0 {
		return nil, false, malformedf("missing or invalid image size (%d, %d)", height, width)
	}
	if len(infos) != 2 {
		return nil, false, malformedf("expected 2 CAMERA records, found %d", len(infos))
	}
	for i := range infos {
		infos[i].ImageHeight = height
		infos[i].ImageWidth = width
	}
	return &calibration{systemType: VIC3DSystem, cameras: infos}, true, nil
}

func parseVIC3DCamera(tokens []string) (camera.Info, error) {
	var info camera.Info
	if len(tokens) < 3 {
		return info, malformedf("CAMERA record without an index")
	}
	index, err := parseIntToken(tokens[2], "camera index")
	if err != nil {
		return info, err
	}
	if index < 0 || index >= vic3dMaxCameraIndex {
		return info, malformedf("camera index %d out of range [0, %d)", index, vic3dMaxCameraIndex)
	}
	if len(tokens) < vic3dMinCameraTokens {
		return info, malformedf("CAMERA record has %d fields, expected at least %d", len(tokens), vic3dMinCameraTokens)
	}
	info.ID = cameraListName(index)
	info.DistortionModel = legacyDistortionModel
	for i, p := range legacyIntrinsicOrder {
		if info.Intrinsics[p], err = parseFloatToken(tokens[i+3], p.String()); err != nil {
			return info, err
		}
	}
	if tokens[11] != "ORIENTATION" {
		return info, malformedf("expected ORIENTATION in CAMERA record, found %q", tokens[11])
	}
	var values [6]float64
	for i := range values {
		if values[i], err = parseFloatToken(tokens[12+i], "camera orientation"); err != nil {
			return info, err
		}
	}
	info.SetRotationFromEuler(values[0], values[1], values[2])
	info.Tx, info.Ty, info.Tz = values[3], values[4], values[5]
	return info, nil
}

// readText reads the legacy text format: one value per line, lines starting with # ignored.
// The values are 8 intrinsics for camera 0, 8 for camera 1, the camera 1 extrinsics (3 euler
// angles or 9 rotation matrix entries, then 3 translations), the image height and the width.
func readText(path string, _ int, logger logging.Logger) (*calibration, bool, error) {
	lines, err := readTokenizedLines(path, textSeparators)
	if err != nil {
		return nil, false, err
	}

	var values []string
	for _, tokens := range lines {
		if strings.HasPrefix(tokens[0], "#") {
			continue
		}
		if tokens[0] == "TRANSFORM" {
			return nil, false, errors.Wrap(ErrUnsupportedFormat, "custom transforms are not supported in the text calibration format")
		}
		if len(tokens) > 1 && !strings.HasPrefix(tokens[1], "#") {
			return nil, false, malformedf("only one value per line is allowed, found %q", strings.Join(tokens, " "))
		}
		values = append(values, tokens[0])
	}
	hasEulers := len(values) == textValuesWithEulers
	if !hasEulers && len(values) != textValuesWithMatrix {
		return nil, false, malformedf("text calibration file has %d values, expected %d or %d "+
			"(the image height and width are required)", len(values), textValuesWithEulers, textValuesWithMatrix)
	}
	logger.Debugw("text calibration layout", "values", len(values), "euler_angles", hasEulers)

	numbers := make([]float64, len(values))
	for i, v := range values {
		if numbers[i], err = parseFloatToken(v, "value"); err != nil {
			return nil, false, errors.Wrapf(err, "value %d", i)
		}
	}

	infos := []camera.Info{
		{ID: cameraListName(0), DistortionModel: legacyDistortionModel},
		{ID: cameraListName(1), DistortionModel: legacyDistortionModel},
	}
	for i, p := range legacyIntrinsicOrder {
		infos[0].Intrinsics[p] = numbers[i]
		infos[1].Intrinsics[p] = numbers[i+len(legacyIntrinsicOrder)]
	}
	extrinsics := numbers[2*len(legacyIntrinsicOrder) : len(numbers)-2]
	height, width := int(numbers[len(numbers)-2]), int(numbers[len(numbers)-1])
	if height < 0 || width < 0 {
		return nil, false, malformedf("negative image size (%d, %d)", height, width)
	}

	second := &infos[1]
	n := len(extrinsics)
	second.Tx, second.Ty, second.Tz = extrinsics[n-3], extrinsics[n-2], extrinsics[n-1]
	if hasEulers {
		second.SetRotationFromEuler(extrinsics[0], extrinsics[1], extrinsics[2])
	} else {
		second.Rotation = camera.IdentityRotation()
		for i := 0; i < 3; i++ {
			second.Rotation.SetRow(i, extrinsics[3*i:3*i+3])
		}
	}
	for i := range infos {
		infos[i].ImageHeight = height
		infos[i].ImageWidth = width
	}
	return &calibration{systemType: TextSystem, cameras: infos}, true, nil
}

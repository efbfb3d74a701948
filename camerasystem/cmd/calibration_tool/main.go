// Package main is a command line tool for inspecting and converting calibration files and for
// projecting points between calibrated cameras.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/calibration/camera"
	"go.viam.com/calibration/camerasystem"
	"go.viam.com/calibration/logging"
)

const (
	appName = "calibration_tool"

	// Flags.
	debugFlag     = "debug"
	sourceFlag    = "source"
	targetFlag    = "target"
	xFlag         = "x"
	yFlag         = "y"
	zpFlag        = "zp"
	thetaFlag     = "theta"
	phiFlag       = "phi"
	rigidBodyFlag = "rigid-body"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	var logger logging.Logger
	return &cli.App{
		Name:      appName,
		Usage:     "inspect, convert and project with camera calibration files",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(debugFlag) {
				logger = logging.NewDebugLogger(appName)
			} else {
				logger = logging.NewLogger(appName)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print the cameras of a calibration file",
				ArgsUsage: "<calibration file>",
				Action: func(c *cli.Context) error {
					return infoAction(c, logger)
				},
			},
			{
				Name:      "convert",
				Usage:     "read a calibration file in any supported format and write it in the native format",
				ArgsUsage: "<input file> <output file>",
				Action: func(c *cli.Context) error {
					return convertAction(c, logger)
				},
			},
			{
				Name:      "project",
				Usage:     "project an image point from one camera into another",
				ArgsUsage: "<calibration file>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: sourceFlag, Value: 0, Usage: "source camera index"},
					&cli.IntFlag{Name: targetFlag, Value: 1, Usage: "target camera index"},
					&cli.Float64Flag{Name: xFlag, Required: true, Usage: "source image x in pixels"},
					&cli.Float64Flag{Name: yFlag, Required: true, Usage: "source image y in pixels"},
					&cli.Float64Flag{Name: zpFlag, Required: true, Usage: "distance of the shape plane along the source camera axis"},
					&cli.Float64Flag{Name: thetaFlag, Usage: "shape plane normal azimuth in radians"},
					&cli.Float64Flag{Name: phiFlag, Usage: "shape plane normal inclination in radians"},
					&cli.Float64SliceFlag{
						Name:  rigidBodyFlag,
						Usage: "rigid body motion applied in world coordinates: angles x,y,z in radians then translations x,y,z",
					},
				},
				Action: func(c *cli.Context) error {
					return projectAction(c, logger)
				},
			},
		},
	}
}

func readSystem(c *cli.Context, logger logging.Logger, numArgs int) (*camerasystem.System, error) {
	if c.Args().Len() != numArgs {
		return nil, errors.Errorf("%s expects %d arguments: %s", c.Command.Name, numArgs, c.Command.ArgsUsage)
	}
	return camerasystem.NewSystemFromFile(c.Args().Get(0), camerasystem.WithLogger(logger.Sublogger("camerasystem")))
}

func infoAction(c *cli.Context, logger logging.Logger) error {
	s, err := readSystem(c, logger, 1)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, s.String())
	if user6, ok := s.User6Transform(); ok {
		fmt.Fprintf(c.App.Writer, "user 6 parameter transform: %v\n", user6)
	}
	if user4x4, ok := s.User4x4Transform(); ok {
		fmt.Fprintf(c.App.Writer, "user 4x4 transform: %v\n", user4x4.RawMatrix().Data)
	}
	return nil
}

func convertAction(c *cli.Context, logger logging.Logger) error {
	s, err := readSystem(c, logger, 2)
	if err != nil {
		return err
	}
	if s.SystemType() == camerasystem.UnknownSystem {
		s.SetSystemType(camerasystem.GenericSystem)
	}
	out := c.Args().Get(1)
	if err := s.WriteCalibrationFile(out); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "wrote %d %v cameras to %q\n", //nolint:errcheck
		s.NumCameras(), s.SystemType(), out)
	return nil
}

func projectAction(c *cli.Context, logger logging.Logger) error {
	s, err := readSystem(c, logger, 1)
	if err != nil {
		return err
	}
	source, target := c.Int(sourceFlag), c.Int(targetFlag)
	shape := make([]float64, camera.NumShapeParams)
	shape[camera.ShapeZP] = c.Float64(zpFlag)
	shape[camera.ShapeTheta] = c.Float64(thetaFlag)
	shape[camera.ShapePhi] = c.Float64(phiFlag)
	srcX, srcY := c.Float64(xFlag), c.Float64(yFlag)

	tgtX, tgtY := make([]float64, 1), make([]float64, 1)
	if err := s.CameraToCameraProjection(
		source, target, []float64{srcX}, []float64{srcY}, tgtX, tgtY, shape, nil, nil, c.Float64Slice(rigidBodyFlag),
	); err != nil {
		return err
	}
	logger.Debugw("projected point", "source", source, "target", target, "shape", shape)
	fmt.Fprintf(c.App.Writer, "camera %d (%.4f, %.4f) -> camera %d (%.4f, %.4f)\n",
		source, srcX, srcY, target, tgtX[0], tgtY[0])
	return nil
}

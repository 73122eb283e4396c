// Package main contains the perception front-end command. It reads per-frame
// accelerator output (object detections and fiducial marker corners) as JSON
// lines on stdin, and writes stabilized target reports and marker poses as
// JSON lines on stdout, announcing new sightings over audio as it goes.
package main

import (
	"context"
	"os"

	"github.com/edaniels/golog"
	goutils "go.viam.com/utils"

	"github.com/uavteam2/percept/pipeline"
	"github.com/uavteam2/percept/speech"
	"github.com/uavteam2/percept/transform"
)

var logger = golog.NewDevelopmentLogger("vision")

// calibration of the onboard camera, used unless an intrinsics file is given
var (
	defaultIntrinsics = transform.PinholeCameraIntrinsics{
		Width:  416,
		Height: 416,
		Fx:     615.381,
		Fy:     615.381,
		Ppx:    320.0,
		Ppy:    240.0,
	}
	defaultDistortion = transform.BrownConrady{
		RadialK1: -0.10818,
		RadialK2: 0.12793,
		RadialK3: -0.04204,
	}
)

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	IntrinsicsPath   string  `flag:"intrinsics,usage=path to camera intrinsics JSON (defaults to onboard calibration)"`
	MarkerSideLength float64 `flag:"marker-size,default=0.2,usage=physical marker side length in meters"`
	MinConfidence    float64 `flag:"min-confidence,default=0,usage=drop detections below this confidence"`
	Window           int     `flag:"window,default=10,usage=observations averaged per stabilized target"`
	SpeechRate       int     `flag:"speech-rate,default=165,usage=espeak speaking rate in words per minute"`
	Silent           bool    `flag:"silent,usage=disable audio announcements"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	intrinsics := &defaultIntrinsics
	distortion := &defaultDistortion
	if argsParsed.IntrinsicsPath != "" {
		loaded, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(argsParsed.IntrinsicsPath)
		if err != nil {
			return err
		}
		intrinsics = loaded
		distortion = nil
		logger.Infow("loaded camera intrinsics", "path", argsParsed.IntrinsicsPath)
	}
	model := &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: intrinsics,
		Distortion:              distortion,
	}

	var engine speech.Engine
	if argsParsed.Silent {
		engine = speech.NewSilentEngine()
	} else {
		engine = speech.NewEspeakEngine(argsParsed.SpeechRate)
	}
	announcer := speech.NewAnnouncer(engine, logger)
	defer announcer.Close()

	emitter := pipeline.NewJSONEmitter(os.Stdout)
	p, err := pipeline.New(pipeline.Config{
		Window:           argsParsed.Window,
		MinConfidence:    argsParsed.MinConfidence,
		MarkerSideLength: argsParsed.MarkerSideLength,
	}, model, emitter, emitter, announcer, logger)
	if err != nil {
		return err
	}

	src := pipeline.NewJSONSource(os.Stdin, logger)
	logger.Info("processing frames")
	return goutils.FilterOutError(p.Run(ctx, src), context.Canceled)
}

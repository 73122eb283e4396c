// Package speech turns newly sighted identifiers into audible announcements
// without ever blocking the frame-processing path that produces them.
package speech

import (
	"context"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultRate is the default speaking rate in words per minute.
const DefaultRate = 165

// An Engine synthesizes and plays a spoken phrase. Say blocks until playback
// has finished, or until the context is canceled.
type Engine interface {
	Say(ctx context.Context, text string) error
}

type espeakEngine struct {
	rate int
}

// NewEspeakEngine returns an Engine backed by the espeak command line
// synthesizer. rate is in words per minute; nonpositive values use
// DefaultRate.
func NewEspeakEngine(rate int) Engine {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &espeakEngine{rate: rate}
}

func (e *espeakEngine) Say(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("nothing to say")
	}
	//nolint:gosec
	cmd := exec.CommandContext(ctx, "espeak", "-s", strconv.Itoa(e.rate), text)
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "espeak failed")
	}
	return nil
}

type silentEngine struct{}

// NewSilentEngine returns an Engine that discards all phrases, for running
// without audio hardware.
func NewSilentEngine() Engine {
	return silentEngine{}
}

func (silentEngine) Say(ctx context.Context, text string) error {
	return ctx.Err()
}

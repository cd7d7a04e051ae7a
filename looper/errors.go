package looper

import (
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

var (
	ErrUnknownTrack     = errors.New("unknown track")
	ErrUnknownDrumTrack = errors.New("unknown drum track")
	ErrStepRange        = errors.New("step out of range")
	ErrNoInput          = errors.New("no audio input")
)

// Error kinds beyond the ftag defaults
const (
	KindDevice ftag.Kind = "DEVICE"
	KindDecode ftag.Kind = "DECODE"
)

func notFound(err error, msg string) error {
	return fault.Wrap(err, ftag.With(ftag.NotFound), fmsg.With(msg))
}

func invalid(err error, msg string) error {
	return fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With(msg))
}

func deviceErr(err error, msg string) error {
	return fault.Wrap(err, ftag.With(KindDevice), fmsg.WithDesc(msg, "Recording is unavailable: no microphone input"))
}

func decodeErr(err error, msg string) error {
	return fault.Wrap(err, ftag.With(KindDecode), fmsg.WithDesc(msg, "The last recording could not be decoded and was dropped"))
}

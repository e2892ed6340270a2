package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PixelFormat is the raw frame layout exchanged with ffmpeg on pipes.
const PixelFormat = "bgr24"

var ErrInvalidParams = errors.New("invalid ffmpeg parameters")

// Base returns the ffmpeg command with standard flags.
// -loglevel level+info prefixes every stderr line with its level so that
// ParseLogLevel can route it.
func Base() string {
	return "ffmpeg -hide_banner -nostdin -loglevel level+info"
}

// BuildDecodeCommand builds an ffmpeg command that emits rawvideo frames of
// exactly Width*Height*3 bytes on stdout.
func BuildDecodeCommand(p *DecodeParams) (string, error) {
	if p == nil || p.Input == "" {
		return "", fmt.Errorf("%w: input is required", ErrInvalidParams)
	}
	if err := checkGeometry(p.Width, p.Height, p.FPS); err != nil {
		return "", err
	}

	var cmd strings.Builder
	cmd.WriteString(Base())

	for _, arg := range p.GlobalArgs {
		cmd.WriteString(" " + arg)
	}

	if p.Loop {
		cmd.WriteString(" -stream_loop -1")
	}
	if p.Realtime {
		cmd.WriteString(" -re")
	}
	if p.Format != "" {
		cmd.WriteString(" -f " + p.Format)
	}
	for _, arg := range p.InputArgs {
		cmd.WriteString(" " + arg)
	}
	cmd.WriteString(" -i " + quote(p.Input))

	fmt.Fprintf(&cmd, " -an -vf scale=%d:%d", p.Width, p.Height)
	cmd.WriteString(" -r " + formatFPS(p.FPS))
	cmd.WriteString(" -pix_fmt " + PixelFormat)
	cmd.WriteString(" -f rawvideo -")

	return cmd.String(), nil
}

// BuildEncodeCommand builds an ffmpeg command that reads rawvideo frames
// from stdin and encodes them into Output.
func BuildEncodeCommand(p *EncodeParams) (string, error) {
	if p == nil || p.Output == "" {
		return "", fmt.Errorf("%w: output is required", ErrInvalidParams)
	}
	if err := checkGeometry(p.Width, p.Height, p.FPS); err != nil {
		return "", err
	}

	var cmd strings.Builder
	cmd.WriteString(Base())

	for _, arg := range p.GlobalArgs {
		cmd.WriteString(" " + arg)
	}

	cmd.WriteString(" -f rawvideo")
	cmd.WriteString(" -pix_fmt " + PixelFormat)
	fmt.Fprintf(&cmd, " -s %dx%d", p.Width, p.Height)
	cmd.WriteString(" -r " + formatFPS(p.FPS))
	cmd.WriteString(" -i -")

	encoder, tag := EncoderForCodec(p.Codec)
	cmd.WriteString(" -c:v " + encoder)
	if tag != "" {
		cmd.WriteString(" -vtag " + tag)
	}
	if p.Bitrate != "" {
		cmd.WriteString(" -b:v " + p.Bitrate)
	}
	cmd.WriteString(" -pix_fmt yuv420p")
	cmd.WriteString(" -y " + quote(p.Output))

	return cmd.String(), nil
}

// EncoderForCodec maps a fourcc (as used by OpenCV writers) to an ffmpeg
// encoder and optional container tag. Unknown values are passed through as
// encoder names.
func EncoderForCodec(codec string) (encoder, tag string) {
	switch strings.ToUpper(codec) {
	case "", "XVID":
		return "mpeg4", "xvid"
	case "MJPG":
		return "mjpeg", ""
	case "MP4V":
		return "mpeg4", ""
	case "H264", "AVC1":
		return "libx264", ""
	}
	return codec, ""
}

func checkGeometry(width, height int, fps float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, width, height)
	}
	if fps <= 0 {
		return fmt.Errorf("%w: fps %v", ErrInvalidParams, fps)
	}
	return nil
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func quote(s string) string {
	if !strings.ContainsAny(s, " \t'\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

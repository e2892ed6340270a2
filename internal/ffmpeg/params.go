package ffmpeg

// DecodeParams describes an ffmpeg invocation that decodes any input into
// raw bgr24 frames on stdout.
type DecodeParams struct {
	Input  string // file path or URL
	Format string // optional demuxer, e.g. "v4l2" or "lavfi"
	Width  int
	Height int
	FPS    float64

	Loop     bool // restart the input when it ends
	Realtime bool // read at native frame rate (-re)

	GlobalArgs []string
	InputArgs  []string
}

// EncodeParams describes an ffmpeg invocation that reads raw bgr24 frames
// on stdin and writes an encoded file.
type EncodeParams struct {
	Output string
	Width  int
	Height int
	FPS    float64
	Codec  string // fourcc or ffmpeg encoder name

	Bitrate    string // 4M
	GlobalArgs []string
}

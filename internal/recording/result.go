package recording

// Result is the outcome of a Start or Stop request.
type Result int

const (
	Started Result = iota
	AlreadyRecording
	Failed
	Stopped
	NotRecording
)

func (r Result) String() string {
	switch r {
	case Started:
		return "started"
	case AlreadyRecording:
		return "already_recording"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	case NotRecording:
		return "not_recording"
	}
	return "unknown"
}

// Message returns a human readable description for API responses.
func (r Result) Message() string {
	switch r {
	case Started:
		return "Recording started"
	case AlreadyRecording:
		return "Already recording"
	case Failed:
		return "Failed to start recording"
	case Stopped:
		return "Recording stopped"
	case NotRecording:
		return "Not recording"
	}
	return "Unknown result"
}

// Changed reports whether the request altered the recording state.
func (r Result) Changed() bool {
	return r == Started || r == Stopped
}

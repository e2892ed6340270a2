package display

import "errors"

var (
	ErrNoFrame = errors.New("no frame rendered yet")
	ErrClosed  = errors.New("display closed")
)

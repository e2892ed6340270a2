package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/pipeline"
)

type trackingProcessor struct {
	configureErr error
	released     int
}

func (p *trackingProcessor) Configure(map[string]any) error               { return p.configureErr }
func (p *trackingProcessor) Process(f *frame.Frame) (*frame.Frame, error) { return f, nil }
func (p *trackingProcessor) Release() error                               { p.released++; return nil }

func withProcessor(kind string, opts map[string]any) pipeline.StreamConfig {
	return pipeline.StreamConfig{Index: 1, Processor: kind, ProcessorOptions: opts}
}

func TestConstructorReceivesStream(t *testing.T) {
	r := NewRegistry()
	var got pipeline.StreamConfig
	require.NoError(t, r.Register("tracking", func(cfg pipeline.StreamConfig) pipeline.Processor {
		got = cfg
		return &trackingProcessor{}
	}))

	_, err := r.Create(pipeline.StreamConfig{Index: 4, Processor: "tracking"})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Index)
}

func TestBuiltinKinds(t *testing.T) {
	assert.Equal(t, []string{"grayscale", "passthrough"}, Builtin().Kinds())
}

func TestCreateUnknownKind(t *testing.T) {
	_, err := Builtin().Create(withProcessor("optical_flow", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Contains(t, err.Error(), "optical_flow")
}

func TestRegisterDuplicate(t *testing.T) {
	r := Builtin()
	err := r.Register("passthrough", func(pipeline.StreamConfig) pipeline.Processor { return &Passthrough{} })
	assert.ErrorIs(t, err, ErrDuplicateKind)
	assert.Error(t, r.Register("", func(pipeline.StreamConfig) pipeline.Processor { return nil }))
}

func TestCreateReleasesOnConfigureError(t *testing.T) {
	tp := &trackingProcessor{configureErr: errors.New("bad option")}
	r := NewRegistry()
	require.NoError(t, r.Register("tracking", func(pipeline.StreamConfig) pipeline.Processor { return tp }))

	_, err := r.Create(withProcessor("tracking", map[string]any{"x": 1}))
	require.Error(t, err)
	assert.Equal(t, 1, tp.released)
	assert.True(t, r.Has("tracking"))
	assert.False(t, r.Has("other"))
}

func TestCreateSatisfiesFactory(t *testing.T) {
	var factory pipeline.ProcessorFactory = Builtin().Create
	p, err := factory(withProcessor("passthrough", nil))
	require.NoError(t, err)

	f := frame.New(2, 2)
	out, err := p.Process(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
}

func TestGrayscale(t *testing.T) {
	p, err := Builtin().Create(withProcessor("grayscale", nil))
	require.NoError(t, err)

	in := frame.New(2, 1)
	in.Seq = 7
	in.SetPixel(0, 0, 255, 255, 255)
	in.SetPixel(1, 0, 0, 0, 255)

	out, err := p.Process(in)
	require.NoError(t, err)
	assert.NotSame(t, in, out)
	assert.Equal(t, uint64(7), out.Seq)

	b, g, r := out.Pixel(0, 0)
	assert.Equal(t, [3]byte{255, 255, 255}, [3]byte{b, g, r})
	b, g, r = out.Pixel(1, 0)
	assert.Equal(t, b, g)
	assert.Equal(t, g, r)
	assert.Equal(t, byte(76), r)

	// input is untouched
	b, g, r = in.Pixel(1, 0)
	assert.Equal(t, [3]byte{0, 0, 255}, [3]byte{b, g, r})
}

func TestGrayscaleInvert(t *testing.T) {
	p, err := Builtin().Create(withProcessor("grayscale", map[string]any{"invert": true}))
	require.NoError(t, err)
	out, err := p.Process(frame.New(1, 1))
	require.NoError(t, err)
	b, _, _ := out.Pixel(0, 0)
	assert.Equal(t, byte(255), b)

	_, err = Builtin().Create(withProcessor("grayscale", map[string]any{"invert": "yes"}))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestGrayscaleRejectsMalformedFrame(t *testing.T) {
	p := &Grayscale{}
	_, err := p.Process(&frame.Frame{Width: 2, Height: 2, Data: make([]byte, 3)})
	assert.Error(t, err)
}

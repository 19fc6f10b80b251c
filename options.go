package aaline

// Option configures a LineRenderer or Pipeline during creation.
//
// Example:
//
//	// Defaults: uniform transport, 3 px falloff, 4x MSAA
//	r := aaline.NewLineRenderer()
//
//	// Push data transport with a sharper falloff
//	r := aaline.NewLineRenderer(
//	    aaline.WithTransport(aaline.TransportPush),
//	    aaline.WithBlendFactor(2),
//	)
type Option func(*options)

// options holds optional configuration.
type options struct {
	transport   Transport
	halfWidth   float64
	blendFactor float32
	lineWidth   float32
	samples     int
	clear       RGBA
	workers     int
	noAccel     bool
}

// DefaultLineWidth is the rasterized line width in pixels.
const DefaultLineWidth = 3.0

// DefaultSamples is the sample count of the color and depth attachments.
const DefaultSamples = 4

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		transport:   TransportUniform,
		halfWidth:   DefaultHalfWidth,
		blendFactor: DefaultBlendFactor,
		lineWidth:   DefaultLineWidth,
		samples:     DefaultSamples,
		clear:       DefaultClearColor,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fragmentStage returns the stage described by the options.
func (o *options) fragmentStage() FragmentStage {
	return NewFragmentStage(o.halfWidth, o.blendFactor)
}

// WithTransport selects how the parameter block reaches the vertex stage.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithHalfWidth sets the distance at which alpha reaches zero.
// Non-positive values select DefaultHalfWidth.
func WithHalfWidth(w float64) Option {
	return func(o *options) {
		o.halfWidth = w
	}
}

// WithBlendFactor sets the falloff exponent.
// Non-positive values select DefaultBlendFactor.
func WithBlendFactor(f float32) Option {
	return func(o *options) {
		o.blendFactor = f
	}
}

// WithLineWidth sets the rasterized line width in pixels.
// Non-positive values select DefaultLineWidth.
//
// Fragments are only produced inside the line rectangle, so a width below
// twice the half-width clips the falloff before alpha reaches zero.
func WithLineWidth(w float32) Option {
	return func(o *options) {
		if !(w > 0) {
			w = DefaultLineWidth
		}
		o.lineWidth = w
	}
}

// WithSamples sets the sample count. Only 1 and 4 are supported; other
// values render single-sampled.
func WithSamples(n int) Option {
	return func(o *options) {
		o.samples = n
	}
}

// WithClearColor sets the color targets are cleared to before drawing.
func WithClearColor(c RGBA) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithWorkers sets the number of CPU workers. 0 uses GOMAXPROCS; 1 renders
// on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithoutAccelerator forces CPU rendering even when an accelerator is
// registered.
func WithoutAccelerator() Option {
	return func(o *options) {
		o.noAccel = true
	}
}

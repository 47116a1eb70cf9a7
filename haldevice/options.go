package haldevice

import "github.com/gogpu/rhi"

// Option configures a Device.
type Option func(*options)

type options struct {
	label       string
	features    rhi.Features
	bucketLimit int
}

func defaultOptions() options {
	return options{
		label: "rhi",
		// HAL backends present WebGPU clip space to callers; no viewport
		// flip is needed on top of it.
		features:    rhi.Features{ClipSpaceYInverted: true, DebugMarkers: true},
		bucketLimit: 8,
	}
}

// WithLabel sets the prefix of native object labels.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithFeatures overrides the reported feature set.
func WithFeatures(f rhi.Features) Option {
	return func(o *options) { o.features = f }
}

// WithStagingBucketLimit caps the idle staging buffers kept per size
// class. Zero keeps every returned buffer.
func WithStagingBucketLimit(n int) Option {
	return func(o *options) { o.bucketLimit = max(n, 0) }
}

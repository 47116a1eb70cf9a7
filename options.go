package rhi

// CommandListOption configures a command list during creation.
//
// Example:
//
//	cl, err := vulkan.NewCommandList(dev,
//	    vulkan.WithCommandListOptions(
//	        rhi.WithName("shadow pass"),
//	        rhi.WithBindingModel(rhi.BindingModelImproved),
//	    ),
//	)
type CommandListOption func(*CommandListConfig)

// CommandListConfig holds the resolved command list configuration.
// Backends read it after applying options with NewCommandListConfig.
type CommandListConfig struct {
	// Name is the initial debug name.
	Name string

	// BindingModel applies to pipelines declaring BindingModelDefault.
	BindingModel BindingModel

	// MaxViewports caps the number of viewport and scissor slots. It is
	// clamped to 1 when the device lacks multiple-viewport support.
	MaxViewports uint32
}

// defaultMaxViewports matches the attachment limit of common devices.
const defaultMaxViewports = 8

// NewCommandListConfig applies opts over the defaults: no name, the legacy
// binding model and eight viewports.
func NewCommandListConfig(opts ...CommandListOption) CommandListConfig {
	cfg := CommandListConfig{
		BindingModel: BindingModelLegacy,
		MaxViewports: defaultMaxViewports,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BindingModel = cfg.BindingModel.Resolve(BindingModelLegacy)
	cfg.MaxViewports = max(cfg.MaxViewports, 1)
	return cfg
}

// WithName sets the initial debug name of the command list.
func WithName(name string) CommandListOption {
	return func(c *CommandListConfig) {
		c.Name = name
	}
}

// WithBindingModel sets the binding model used for pipelines that do not
// declare one.
func WithBindingModel(m BindingModel) CommandListOption {
	return func(c *CommandListConfig) {
		c.BindingModel = m
	}
}

// WithMaxViewports sets the number of viewport and scissor slots.
func WithMaxViewports(n uint32) CommandListOption {
	return func(c *CommandListConfig) {
		c.MaxViewports = n
	}
}

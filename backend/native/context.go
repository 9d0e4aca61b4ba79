package native

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/internal/effect"
)

// Option configures a Context.
type Option func(*options)

type options struct {
	backend          gputypes.Backend
	width, height    uint32
	label            string
	colorFormat      gputypes.TextureFormat
	probe            func() gapi.DeviceStatus
	spirv            effect.SPIRVFunc
	programCacheSize int
	waitTimeout      time.Duration
}

func defaultOptions() options {
	return options{
		backend:          gputypes.BackendVulkan,
		width:            800,
		height:           600,
		label:            "gapi",
		colorFormat:      gputypes.TextureFormatBGRA8Unorm,
		programCacheSize: 64,
		waitTimeout:      5 * time.Second,
	}
}

// WithBackend selects the HAL backend used by NewContext.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSize sets the size of the back buffer.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithLabel sets the prefix of native object labels.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithColorFormat sets the back buffer format.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.colorFormat = f }
}

// WithDeviceProbe replaces the function CheckDevice polls for the device
// state. The default probe reports DeviceNotReset after a failed submit
// and DeviceOK otherwise.
func WithDeviceProbe(probe func() gapi.DeviceStatus) Option {
	return func(o *options) { o.probe = probe }
}

// WithCompiler replaces the WGSL to SPIR-V compiler. The default is naga.
func WithCompiler(fn effect.SPIRVFunc) Option {
	return func(o *options) { o.spirv = fn }
}

// WithProgramCacheSize sets the soft limit of the compiled effect cache.
func WithProgramCacheSize(n int) Option {
	return func(o *options) { o.programCacheSize = n }
}

// Context owns the HAL device the backend renders with. It replaces
// process-wide driver state: everything the backend needs from the
// driver is reached through one explicitly created and closed Context.
type Context struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	// owned is false when the device belongs to a host application.
	owned       bool
	adapterName string
	opts        options
}

// NewContext creates a standalone device on the configured HAL backend.
func NewContext(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, o.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	gapi.Logger().Info("native: device created", "adapter", selected.Info.Name)
	return &Context{
		device:      openDev.Device,
		queue:       openDev.Queue,
		instance:    instance,
		owned:       true,
		adapterName: selected.Info.Name,
		opts:        o,
	}, nil
}

// NewContextFromDevice wraps an existing device and queue. The context
// does not destroy them on Close.
func NewContextFromDevice(device hal.Device, queue hal.Queue, opts ...Option) (*Context, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Context{device: device, queue: queue, opts: o}, nil
}

// NewContextFromProvider shares the device of a host application. The
// provider must expose HalDevice() and HalQueue(); the back buffer uses
// the provider's surface format.
func NewContextFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithColorFormat(f)}, opts...)
	}
	return NewContextFromDevice(device, queue, opts...)
}

// Device returns the HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// AdapterName returns the name of the adapter, empty for borrowed devices.
func (c *Context) AdapterName() string { return c.adapterName }

// Close destroys the device if the context created it.
func (c *Context) Close() {
	if c.owned && c.device != nil {
		c.device.Destroy()
	}
	if c.instance != nil {
		c.instance.Destroy()
	}
	c.device, c.queue, c.instance = nil, nil, nil
}

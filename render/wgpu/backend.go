// Package wgpu executes the rendering techniques on a GPU through
// github.com/gogpu/wgpu. It owns device and queue lifetime, builds one render
// pipeline per technique from the shared pipeline registry, and encodes whole
// frames: rect batches, two-pass blurs, 3D mesh passes with compositing, and
// the terminal finalize blit.
package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/Danilodum/raddebugger/render"
)

// Backend owns the GPU instance, device, and queue used by all renderers.
//
// Init must be called before creating renderers; Destroy releases everything
// in reverse order. A Backend constructed with NewWithDevice borrows its
// device and never destroys it.
type Backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	ownsDevice  bool
	initialized bool
}

// New creates an uninitialized backend. Call Init before use.
func New() *Backend {
	return &Backend{ownsDevice: true}
}

// NewWithDevice wraps an existing device and queue, for embedding into a host
// that already owns GPU resources. The backend is ready immediately and
// Destroy leaves the device alone.
func NewWithDevice(device hal.Device, queue hal.Queue) *Backend {
	return &Backend{
		device:      device,
		queue:       queue,
		initialized: true,
	}
}

// Init creates the GPU instance, picks an adapter (discrete preferred, then
// integrated, then whatever is first), and opens a device. Calling Init on an
// initialized backend is a no-op.
func (b *Backend) Init() error {
	if b.initialized {
		return nil
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.initialized = true

	render.Logger().Info("wgpu: backend initialized", "adapter", selected.Info.Name)
	return nil
}

// Destroy releases the device and instance if the backend owns them. Safe to
// call multiple times.
func (b *Backend) Destroy() {
	if !b.initialized {
		return
	}
	if b.ownsDevice && b.device != nil {
		b.device.Destroy()
	}
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.initialized = false
}

// Device returns the GPU device, or nil before Init.
func (b *Backend) Device() hal.Device {
	return b.device
}

// Queue returns the GPU queue, or nil before Init.
func (b *Backend) Queue() hal.Queue {
	return b.queue
}

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a sampled 2D texture owned by a Renderer: an atlas page for the
// rect technique or an externally supplied image. The pixel format is the
// frame's target format (BGRA8, 4 bytes per pixel) or single-channel R8 for
// glyph/icon atlases combined with a broadcast channel map.
type Texture struct {
	device hal.Device

	tex  hal.Texture
	view hal.TextureView

	width, height uint32
	bytesPerPixel uint32
}

// CreateTexture allocates a sampled texture and uploads its initial
// contents. data must be width*height*4 bytes (BGRA order) or nil to leave
// the texture unwritten.
func (r *Renderer) CreateTexture(width, height uint32, data []byte) (*Texture, error) {
	return r.createTexture(width, height, targetFormat, 4, data)
}

// CreateTextureR8 allocates a single-channel texture, typically a glyph
// atlas sampled through a broadcast channel map. data must be width*height
// bytes or nil.
func (r *Renderer) CreateTextureR8(width, height uint32, data []byte) (*Texture, error) {
	return r.createTexture(width, height, gputypes.TextureFormatR8Unorm, 1, data)
}

func (r *Renderer) createTexture(width, height uint32, format gputypes.TextureFormat, bpp uint32, data []byte) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("wgpu: invalid texture size %dx%d", width, height)
	}
	if data != nil && uint32(len(data)) != width*height*bpp {
		return nil, fmt.Errorf("wgpu: texture data is %d bytes, want %d",
			len(data), width*height*bpp)
	}

	tex, err := r.backend.device.CreateTexture(&hal.TextureDescriptor{
		Label: "sampled_texture",
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}

	view, err := r.backend.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "sampled_texture_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.backend.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}

	t := &Texture{
		device:        r.backend.device,
		tex:           tex,
		view:          view,
		width:         width,
		height:        height,
		bytesPerPixel: bpp,
	}
	if data != nil {
		if err := t.Write(r.backend.queue, data); err != nil {
			t.Destroy()
			return nil, err
		}
	}
	return t, nil
}

// Write replaces the full texture contents.
func (t *Texture) Write(queue hal.Queue, data []byte) error {
	if uint32(len(data)) != t.width*t.height*t.bytesPerPixel {
		return fmt.Errorf("wgpu: texture data is %d bytes, want %d",
			len(data), t.width*t.height*t.bytesPerPixel)
	}
	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.width * t.bytesPerPixel,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// Size returns the texture dimensions in pixels.
func (t *Texture) Size() (uint32, uint32) {
	return t.width, t.height
}

// Destroy releases the texture. Safe to call multiple times.
func (t *Texture) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// renderTarget is an offscreen color target with both render-attachment and
// sampled usage, so one pass can draw into it and the next can read it.
type renderTarget struct {
	tex  hal.Texture
	view hal.TextureView
}

func newRenderTarget(device hal.Device, label string, width, height uint32, extraUsage gputypes.TextureUsage) (renderTarget, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | extraUsage,
	})
	if err != nil {
		return renderTarget{}, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return renderTarget{}, fmt.Errorf("wgpu: create %s view: %w", label, err)
	}
	return renderTarget{tex: tex, view: view}, nil
}

func (rt *renderTarget) destroy(device hal.Device) {
	if rt.view != nil {
		device.DestroyTextureView(rt.view)
		rt.view = nil
	}
	if rt.tex != nil {
		device.DestroyTexture(rt.tex)
		rt.tex = nil
	}
}

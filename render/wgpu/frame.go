package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/Danilodum/raddebugger/render"
)

// gpuTimeout bounds the fence wait after a frame submit.
const gpuTimeout = 5 * time.Second

// Pass is one element of a frame's ordered pass list. Passes execute in
// submission order; a blur or composite pass reads everything drawn before
// it.
type Pass interface {
	isPass()
}

// RectPass draws batches of rounded rectangles into the scene.
type RectPass struct {
	Batches []RectBatch
}

// RectBatch is one instanced rect draw: shared uniforms, instances, and an
// optional texture. A nil Texture binds an opaque white pixel, which leaves
// texture sampling inert.
type RectBatch struct {
	Uniforms  render.RectUniforms
	Instances []render.RectInstance
	Texture   *Texture
}

// BlurPass blurs the scene content behind a rounded-rect region: a
// horizontal pass into an intermediate target, then a vertical pass back
// into the scene. Direction is set per pass from the same uniform block.
type BlurPass struct {
	Uniforms render.BlurUniforms
}

// Geo3DPass renders mesh batches into the offscreen 3D target with depth
// testing, then composites that target over the scene.
type Geo3DPass struct {
	Batches []MeshBatch
}

// MeshBatch is one instanced mesh draw.
type MeshBatch struct {
	Uniforms  render.MeshUniforms
	Vertices  []render.MeshVertex
	Instances []render.MeshInstance
}

func (RectPass) isPass()  {}
func (BlurPass) isPass()  {}
func (Geo3DPass) isPass() {}

// Frame is one frame's worth of work: a clear color and the ordered passes.
// After the pass list runs, the scene is finalized into the presentable
// target with alpha forced opaque.
type Frame struct {
	Clear  gputypes.Color
	Passes []Pass
}

// Renderer encodes frames against a fixed-size set of offscreen targets.
// It is not safe for concurrent use; create one renderer per output.
type Renderer struct {
	backend   *Backend
	pipelines *pipelineSet

	width, height uint32

	// scene accumulates all 2D drawing across passes.
	scene renderTarget

	// blurScratch holds the horizontal blur result between the two passes.
	blurScratch renderTarget

	// geo3d is the offscreen 3D color target; depth backs its depth test.
	geo3d     renderTarget
	depthTex  hal.Texture
	depthView hal.TextureView

	// final is the presentable target with CopySrc usage for readback.
	final renderTarget

	// white is the 1x1 fallback texture for untextured rect batches.
	white *Texture
}

// NewRenderer creates a renderer with all per-target resources for the given
// output size. The backend must be initialized.
func NewRenderer(b *Backend, width, height uint32) (*Renderer, error) {
	if !b.initialized {
		return nil, fmt.Errorf("wgpu: backend not initialized")
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("wgpu: invalid renderer size %dx%d", width, height)
	}

	ps, err := newPipelineSet(b.device)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		backend:   b,
		pipelines: ps,
		width:     width,
		height:    height,
	}
	if err := r.createTargets(); err != nil {
		r.Destroy()
		return nil, err
	}

	white, err := r.CreateTexture(1, 1, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.white = white

	render.Logger().Debug("wgpu: renderer created", "width", width, "height", height)
	return r, nil
}

func (r *Renderer) createTargets() error {
	device := r.backend.device

	scene, err := newRenderTarget(device, "scene_target", r.width, r.height, 0)
	if err != nil {
		return err
	}
	r.scene = scene

	blurScratch, err := newRenderTarget(device, "blur_scratch_target", r.width, r.height, 0)
	if err != nil {
		return err
	}
	r.blurScratch = blurScratch

	geo3d, err := newRenderTarget(device, "geo3d_target", r.width, r.height, 0)
	if err != nil {
		return err
	}
	r.geo3d = geo3d

	depthTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "geo3d_depth",
		Size: hal.Extent3D{
			Width:              r.width,
			Height:             r.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create depth texture: %w", err)
	}
	r.depthTex = depthTex

	depthView, err := device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
		Label: "geo3d_depth_view",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create depth view: %w", err)
	}
	r.depthView = depthView

	final, err := newRenderTarget(device, "final_target", r.width, r.height,
		gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	r.final = final
	return nil
}

// Destroy releases all renderer resources. Safe to call multiple times and
// on a partially constructed renderer.
func (r *Renderer) Destroy() {
	device := r.backend.device
	if device == nil {
		return
	}
	if r.white != nil {
		r.white.Destroy()
		r.white = nil
	}
	r.final.destroy(device)
	if r.depthView != nil {
		device.DestroyTextureView(r.depthView)
		r.depthView = nil
	}
	if r.depthTex != nil {
		device.DestroyTexture(r.depthTex)
		r.depthTex = nil
	}
	r.geo3d.destroy(device)
	r.blurScratch.destroy(device)
	r.scene.destroy(device)
	if r.pipelines != nil {
		r.pipelines.destroy()
		r.pipelines = nil
	}
}

// Size returns the renderer's output dimensions.
func (r *Renderer) Size() (uint32, uint32) {
	return r.width, r.height
}

// frameResources tracks transient GPU objects created while encoding one
// frame. Everything is destroyed after the fence wait.
type frameResources struct {
	device  hal.Device
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

func (fr *frameResources) destroy() {
	for _, bg := range fr.groups {
		if bg != nil {
			fr.device.DestroyBindGroup(bg)
		}
	}
	for _, buf := range fr.buffers {
		if buf != nil {
			fr.device.DestroyBuffer(buf)
		}
	}
	fr.groups = nil
	fr.buffers = nil
}

func (fr *frameResources) uploadBuffer(r *Renderer, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.backend.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	fr.buffers = append(fr.buffers, buf)
	r.backend.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (fr *frameResources) uniformTexGroup(r *Renderer, label string, uniformBuf hal.Buffer, uniformSize int, view hal.TextureView) (hal.BindGroup, error) {
	bg, err := r.backend.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: r.pipelines.uniformTexLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uint64(uniformSize),
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: r.pipelines.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	fr.groups = append(fr.groups, bg)
	return bg, nil
}

func (fr *frameResources) blitGroup(r *Renderer, label string, view hal.TextureView) (hal.BindGroup, error) {
	bg, err := r.backend.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: r.pipelines.blitLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
			{Binding: 1, Resource: gputypes.SamplerBinding{
				Sampler: r.pipelines.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	fr.groups = append(fr.groups, bg)
	return bg, nil
}

// transition inserts a usage barrier for one texture. Required on Vulkan
// whenever a target switches between attachment and sampled usage within a
// frame; a no-op on backends without explicit layouts.
func transition(encoder hal.CommandEncoder, tex hal.Texture, from, to gputypes.TextureUsage) {
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: from,
			NewUsage: to,
		},
	}})
}

// sceneAttachment returns the scene color attachment. The first scene pass
// of a frame clears; every later one loads.
func (r *Renderer) sceneAttachment(first bool, clear gputypes.Color) []hal.RenderPassColorAttachment {
	loadOp := gputypes.LoadOpLoad
	if first {
		loadOp = gputypes.LoadOpClear
	}
	return []hal.RenderPassColorAttachment{
		{
			View:       r.scene.view,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		},
	}
}

// RenderFrame encodes and submits one frame, waits for completion, and, if
// pixels is non-nil, reads the finalized output back into it as BGRA rows
// (len must be width*height*4).
//
// Pass uniform blocks are validated before any GPU work; a validation
// failure is a configuration error and nothing is submitted.
func (r *Renderer) RenderFrame(frame *Frame, pixels []byte) error {
	if pixels != nil && uint32(len(pixels)) != r.width*r.height*4 {
		return fmt.Errorf("wgpu: pixel buffer is %d bytes, want %d",
			len(pixels), r.width*r.height*4)
	}
	for _, p := range frame.Passes {
		if bp, ok := p.(BlurPass); ok {
			if err := bp.Uniforms.Validate(); err != nil {
				return err
			}
		}
	}

	fr := &frameResources{device: r.backend.device}
	defer fr.destroy()

	encoder, err := r.backend.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	// Clear the scene up front so a frame with no rect passes still starts
	// from the clear color.
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "scene_clear_pass",
		ColorAttachments: r.sceneAttachment(true, frame.Clear),
	})
	rp.End()

	for i, p := range frame.Passes {
		switch pass := p.(type) {
		case RectPass:
			if err := r.encodeRectPass(encoder, fr, i, pass); err != nil {
				encoder.DiscardEncoding()
				return err
			}
		case BlurPass:
			if err := r.encodeBlurPass(encoder, fr, i, pass); err != nil {
				encoder.DiscardEncoding()
				return err
			}
		case Geo3DPass:
			if err := r.encodeGeo3DPass(encoder, fr, i, pass); err != nil {
				encoder.DiscardEncoding()
				return err
			}
		default:
			encoder.DiscardEncoding()
			return fmt.Errorf("wgpu: unknown pass type %T", p)
		}
	}

	if err := r.encodeFinalize(encoder, fr); err != nil {
		encoder.DiscardEncoding()
		return err
	}

	var staging hal.Buffer
	if pixels != nil {
		transition(encoder, r.final.tex, gputypes.TextureUsageRenderAttachment,
			gputypes.TextureUsageCopySrc)

		staging, err = r.backend.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "readback_staging",
			Size:  uint64(len(pixels)),
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("wgpu: create staging buffer: %w", err)
		}
		fr.buffers = append(fr.buffers, staging)

		encoder.CopyTextureToBuffer(r.final.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  r.width * 4,
				RowsPerImage: r.height,
			},
			TextureBase: hal.ImageCopyTexture{Texture: r.final.tex, MipLevel: 0},
			Size: hal.Extent3D{
				Width:              r.width,
				Height:             r.height,
				DepthOrArrayLayers: 1,
			},
		}})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer r.backend.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.backend.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer r.backend.device.DestroyFence(fence)

	if err := r.backend.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	fenceOK, err := r.backend.device.Wait(fence, 1, gpuTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wgpu: wait for frame: ok=%v err=%w", fenceOK, err)
	}

	if pixels != nil {
		if err := r.backend.queue.ReadBuffer(staging, 0, pixels); err != nil {
			return fmt.Errorf("wgpu: readback: %w", err)
		}
	}
	return nil
}

// encodeRectPass draws every batch of a rect pass into the scene, one
// instanced draw per batch.
func (r *Renderer) encodeRectPass(encoder hal.CommandEncoder, fr *frameResources, passIdx int, pass RectPass) error {
	type batchDraw struct {
		group     hal.BindGroup
		instances hal.Buffer
		count     uint32
	}
	draws := make([]batchDraw, 0, len(pass.Batches))

	for bi, batch := range pass.Batches {
		if len(batch.Instances) == 0 {
			continue
		}
		uniformBuf, err := fr.uploadBuffer(r, "rect_uniforms", batch.Uniforms.Pack(),
			gputypes.BufferUsageUniform)
		if err != nil {
			return err
		}
		instBuf, err := fr.uploadBuffer(r, "rect_instances",
			render.PackRectInstances(batch.Instances), gputypes.BufferUsageVertex)
		if err != nil {
			return err
		}

		view := r.white.view
		if batch.Texture != nil {
			view = batch.Texture.view
		}
		group, err := fr.uniformTexGroup(r,
			fmt.Sprintf("rect_bind_%d_%d", passIdx, bi),
			uniformBuf, render.RectUniformsSize, view)
		if err != nil {
			return err
		}
		draws = append(draws, batchDraw{
			group:     group,
			instances: instBuf,
			count:     uint32(len(batch.Instances)),
		})
	}
	if len(draws) == 0 {
		return nil
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "rect_pass",
		ColorAttachments: r.sceneAttachment(false, gputypes.Color{}),
	})
	rp.SetPipeline(r.pipelines.rect)
	for _, d := range draws {
		rp.SetBindGroup(0, d.group, nil)
		rp.SetVertexBuffer(0, d.instances, 0)
		rp.Draw(4, d.count, 0, 0)
	}
	rp.End()
	return nil
}

// encodeBlurPass runs the two separable blur passes: scene -> scratch with
// the horizontal kernel, scratch -> scene with the vertical kernel. Pass
// ordering is strict; the vertical pass must read the horizontal result.
func (r *Renderer) encodeBlurPass(encoder hal.CommandEncoder, fr *frameResources, passIdx int, pass BlurPass) error {
	horizontal := pass.Uniforms
	horizontal.Direction = render.BlurDirX
	vertical := pass.Uniforms
	vertical.Direction = render.BlurDirY

	hBuf, err := fr.uploadBuffer(r, "blur_uniforms_x", horizontal.Pack(),
		gputypes.BufferUsageUniform)
	if err != nil {
		return err
	}
	vBuf, err := fr.uploadBuffer(r, "blur_uniforms_y", vertical.Pack(),
		gputypes.BufferUsageUniform)
	if err != nil {
		return err
	}

	hGroup, err := fr.uniformTexGroup(r, fmt.Sprintf("blur_bind_x_%d", passIdx),
		hBuf, render.BlurUniformsSize, r.scene.view)
	if err != nil {
		return err
	}
	vGroup, err := fr.uniformTexGroup(r, fmt.Sprintf("blur_bind_y_%d", passIdx),
		vBuf, render.BlurUniformsSize, r.blurScratch.view)
	if err != nil {
		return err
	}

	// Horizontal: sample the scene, write the scratch target.
	transition(encoder, r.scene.tex, gputypes.TextureUsageRenderAttachment,
		gputypes.TextureUsageTextureBinding)
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "blur_pass_x",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    r.blurScratch.view,
				LoadOp:  gputypes.LoadOpClear,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(r.pipelines.blur)
	rp.SetBindGroup(0, hGroup, nil)
	rp.Draw(4, 1, 0, 0)
	rp.End()

	// Vertical: sample the scratch target, write back into the scene.
	transition(encoder, r.blurScratch.tex, gputypes.TextureUsageRenderAttachment,
		gputypes.TextureUsageTextureBinding)
	transition(encoder, r.scene.tex, gputypes.TextureUsageTextureBinding,
		gputypes.TextureUsageRenderAttachment)
	rp = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "blur_pass_y",
		ColorAttachments: r.sceneAttachment(false, gputypes.Color{}),
	})
	rp.SetPipeline(r.pipelines.blur)
	rp.SetBindGroup(0, vGroup, nil)
	rp.Draw(4, 1, 0, 0)
	rp.End()

	transition(encoder, r.blurScratch.tex, gputypes.TextureUsageTextureBinding,
		gputypes.TextureUsageRenderAttachment)
	return nil
}

// encodeGeo3DPass renders mesh batches into the 3D target with depth
// testing, then composites the result over the scene.
func (r *Renderer) encodeGeo3DPass(encoder hal.CommandEncoder, fr *frameResources, passIdx int, pass Geo3DPass) error {
	type meshDraw struct {
		group       hal.BindGroup
		vertices    hal.Buffer
		instances   hal.Buffer
		vertexCount uint32
		instCount   uint32
	}
	draws := make([]meshDraw, 0, len(pass.Batches))

	for bi, batch := range pass.Batches {
		if len(batch.Vertices) == 0 || len(batch.Instances) == 0 {
			continue
		}
		uniformBuf, err := fr.uploadBuffer(r, "mesh_uniforms", batch.Uniforms.Pack(),
			gputypes.BufferUsageUniform)
		if err != nil {
			return err
		}
		vertBuf, err := fr.uploadBuffer(r, "mesh_vertices",
			render.PackMeshVertices(batch.Vertices), gputypes.BufferUsageVertex)
		if err != nil {
			return err
		}
		instBuf, err := fr.uploadBuffer(r, "mesh_instances",
			render.PackMeshInstances(batch.Instances), gputypes.BufferUsageVertex)
		if err != nil {
			return err
		}
		group, err := fr.uniformTexGroup(r,
			fmt.Sprintf("mesh_bind_%d_%d", passIdx, bi),
			uniformBuf, render.MeshUniformsSize, r.white.view)
		if err != nil {
			return err
		}
		draws = append(draws, meshDraw{
			group:       group,
			vertices:    vertBuf,
			instances:   instBuf,
			vertexCount: uint32(len(batch.Vertices)),
			instCount:   uint32(len(batch.Instances)),
		})
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "geo3d_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    r.geo3d.view,
				LoadOp:  gputypes.LoadOpClear,
				StoreOp: gputypes.StoreOpStore,
			},
		},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              r.depthView,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		},
	})
	rp.SetPipeline(r.pipelines.mesh)
	for _, d := range draws {
		rp.SetBindGroup(0, d.group, nil)
		rp.SetVertexBuffer(0, d.vertices, 0)
		rp.SetVertexBuffer(1, d.instances, 0)
		rp.Draw(d.vertexCount, d.instCount, 0, 0)
	}
	rp.End()

	// Composite the 3D target over the scene.
	blitBind, err := fr.blitGroup(r, fmt.Sprintf("composite_bind_%d", passIdx), r.geo3d.view)
	if err != nil {
		return err
	}
	transition(encoder, r.geo3d.tex, gputypes.TextureUsageRenderAttachment,
		gputypes.TextureUsageTextureBinding)
	rp = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "geo3d_composite_pass",
		ColorAttachments: r.sceneAttachment(false, gputypes.Color{}),
	})
	rp.SetPipeline(r.pipelines.composite)
	rp.SetBindGroup(0, blitBind, nil)
	rp.Draw(4, 1, 0, 0)
	rp.End()

	transition(encoder, r.geo3d.tex, gputypes.TextureUsageTextureBinding,
		gputypes.TextureUsageRenderAttachment)
	return nil
}

// encodeFinalize blits the scene into the presentable target, forcing alpha
// opaque.
func (r *Renderer) encodeFinalize(encoder hal.CommandEncoder, fr *frameResources) error {
	blitBind, err := fr.blitGroup(r, "finalize_bind", r.scene.view)
	if err != nil {
		return err
	}

	transition(encoder, r.scene.tex, gputypes.TextureUsageRenderAttachment,
		gputypes.TextureUsageTextureBinding)
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "finalize_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    r.final.view,
				LoadOp:  gputypes.LoadOpClear,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(r.pipelines.finalize)
	rp.SetBindGroup(0, blitBind, nil)
	rp.Draw(4, 1, 0, 0)
	rp.End()

	transition(encoder, r.scene.tex, gputypes.TextureUsageTextureBinding,
		gputypes.TextureUsageRenderAttachment)
	return nil
}

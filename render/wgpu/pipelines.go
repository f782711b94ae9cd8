package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/Danilodum/raddebugger/render"
)

// targetFormat is the color format of every render target in a frame.
const targetFormat = gputypes.TextureFormatBGRA8Unorm

// depthFormat is the depth/stencil format of the 3D mesh pass.
const depthFormat = gputypes.TextureFormatDepth24PlusStencil8

// pipelineSet holds one render pipeline per technique plus the shared bind
// group layouts and sampler. Built once per device from the technique
// registry; immutable afterwards.
type pipelineSet struct {
	device hal.Device

	shaders [render.TechniqueCount]hal.ShaderModule

	// Linear clamp-to-edge sampler shared by every sampling stage.
	sampler hal.Sampler

	// uniformTexLayout binds a uniform buffer, a texture, and the sampler.
	// The rect, blur, and mesh shaders all declare this binding interface.
	uniformTexLayout hal.BindGroupLayout
	uniformTexPipeLayout hal.PipelineLayout

	// blitLayout binds just a texture and the sampler, for the bufferless
	// composite and finalize blits.
	blitLayout     hal.BindGroupLayout
	blitPipeLayout hal.PipelineLayout

	rect      hal.RenderPipeline
	blur      hal.RenderPipeline
	mesh      hal.RenderPipeline
	composite hal.RenderPipeline
	finalize  hal.RenderPipeline
}

// newPipelineSet compiles every registered shader module and creates the
// five render pipelines. On error, everything created so far is destroyed.
func newPipelineSet(device hal.Device) (*pipelineSet, error) {
	ps := &pipelineSet{device: device}
	if err := ps.build(); err != nil {
		ps.destroy()
		return nil, err
	}
	return ps, nil
}

func (ps *pipelineSet) build() error {
	for kind := render.TechniqueKind(0); kind < render.TechniqueKind(render.TechniqueCount); kind++ {
		shader, err := ps.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  kind.String() + "_shader",
			Source: hal.ShaderSource{WGSL: render.ShaderSource(kind)},
		})
		if err != nil {
			return fmt.Errorf("wgpu: compile %v shader: %w", kind, err)
		}
		ps.shaders[kind] = shader
	}

	sampler, err := ps.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "render_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler: %w", err)
	}
	ps.sampler = sampler

	// Bind group layout shared by rect, blur, and mesh:
	//   Binding 0: uniform block (vertex+fragment)
	//   Binding 1: sampled texture (fragment)
	//   Binding 2: sampler (fragment)
	uniformTexLayout, err := ps.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "uniform_tex_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform+texture bind group layout: %w", err)
	}
	ps.uniformTexLayout = uniformTexLayout

	uniformTexPipeLayout, err := ps.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "uniform_tex_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{ps.uniformTexLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform+texture pipeline layout: %w", err)
	}
	ps.uniformTexPipeLayout = uniformTexPipeLayout

	// Bufferless blit layout for composite and finalize:
	//   Binding 0: sampled texture (fragment)
	//   Binding 1: sampler (fragment)
	blitLayout, err := ps.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit bind group layout: %w", err)
	}
	ps.blitLayout = blitLayout

	blitPipeLayout, err := ps.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{ps.blitLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit pipeline layout: %w", err)
	}
	ps.blitPipeLayout = blitPipeLayout

	if err := ps.buildRect(); err != nil {
		return err
	}
	if err := ps.buildBlur(); err != nil {
		return err
	}
	if err := ps.buildMesh(); err != nil {
		return err
	}
	if err := ps.buildBlits(); err != nil {
		return err
	}
	return nil
}

// buildRect creates the instanced rounded-rect pipeline. Geometry is a
// bufferless 4-vertex triangle strip per instance; all shape data arrives
// through the instance buffer. The shader emits premultiplied color for the
// premultiplied-alpha blend state.
func (ps *pipelineSet) buildRect() error {
	desc := render.Resolve(render.TechniqueRect)
	blend := gputypes.BlendStatePremultiplied()

	pipeline, err := ps.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "rect_pipeline",
		Layout: ps.uniformTexPipeLayout,
		Vertex: hal.VertexState{
			Module:     ps.shaders[render.TechniqueRect],
			EntryPoint: render.Stage(desc.Vertex).EntryPoint,
			Buffers:    rectVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     ps.shaders[render.TechniqueRect],
			EntryPoint: render.Stage(desc.Fragment).EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create rect pipeline: %w", err)
	}
	ps.rect = pipeline
	return nil
}

// buildBlur creates the blur pipeline: bufferless quad over the clip rect,
// opaque output, no blending.
func (ps *pipelineSet) buildBlur() error {
	desc := render.Resolve(render.TechniqueBlur)

	pipeline, err := ps.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "blur_pipeline",
		Layout: ps.uniformTexPipeLayout,
		Vertex: hal.VertexState{
			Module:     ps.shaders[render.TechniqueBlur],
			EntryPoint: render.Stage(desc.Vertex).EntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     ps.shaders[render.TechniqueBlur],
			EntryPoint: render.Stage(desc.Fragment).EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blur pipeline: %w", err)
	}
	ps.blur = pipeline
	return nil
}

// buildMesh creates the instanced 3D mesh pipeline with depth testing.
// The stencil component of the depth format is untouched.
func (ps *pipelineSet) buildMesh() error {
	desc := render.Resolve(render.TechniqueMesh)
	blend := gputypes.BlendStatePremultiplied()

	pipeline, err := ps.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "mesh_pipeline",
		Layout: ps.uniformTexPipeLayout,
		Vertex: hal.VertexState{
			Module:     ps.shaders[render.TechniqueMesh],
			EntryPoint: render.Stage(desc.Vertex).EntryPoint,
			Buffers:    meshVertexLayouts(),
		},
		Fragment: &hal.FragmentState{
			Module:     ps.shaders[render.TechniqueMesh],
			EntryPoint: render.Stage(desc.Fragment).EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0x00,
			StencilWriteMask: 0x00,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create mesh pipeline: %w", err)
	}
	ps.mesh = pipeline
	return nil
}

// buildBlits creates the composite and finalize pipelines. Both draw the
// bufferless fullscreen strip; composite alpha-blends the 3D target over the
// scene while finalize overwrites.
func (ps *pipelineSet) buildBlits() error {
	blend := gputypes.BlendStatePremultiplied()

	compositeDesc := render.Resolve(render.TechniqueGeo3DComposite)
	composite, err := ps.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "geo3d_composite_pipeline",
		Layout: ps.blitPipeLayout,
		Vertex: hal.VertexState{
			Module:     ps.shaders[render.TechniqueGeo3DComposite],
			EntryPoint: render.Stage(compositeDesc.Vertex).EntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     ps.shaders[render.TechniqueGeo3DComposite],
			EntryPoint: render.Stage(compositeDesc.Fragment).EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create composite pipeline: %w", err)
	}
	ps.composite = composite

	finalizeDesc := render.Resolve(render.TechniqueFinalize)
	finalize, err := ps.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "finalize_pipeline",
		Layout: ps.blitPipeLayout,
		Vertex: hal.VertexState{
			Module:     ps.shaders[render.TechniqueFinalize],
			EntryPoint: render.Stage(finalizeDesc.Vertex).EntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     ps.shaders[render.TechniqueFinalize],
			EntryPoint: render.Stage(finalizeDesc.Fragment).EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create finalize pipeline: %w", err)
	}
	ps.finalize = finalize
	return nil
}

// destroy releases all pipeline resources in reverse creation order. Safe to
// call on a partially built set.
func (ps *pipelineSet) destroy() {
	if ps.device == nil {
		return
	}
	for _, p := range []hal.RenderPipeline{ps.finalize, ps.composite, ps.mesh, ps.blur, ps.rect} {
		if p != nil {
			ps.device.DestroyRenderPipeline(p)
		}
	}
	ps.finalize, ps.composite, ps.mesh, ps.blur, ps.rect = nil, nil, nil, nil, nil
	if ps.blitPipeLayout != nil {
		ps.device.DestroyPipelineLayout(ps.blitPipeLayout)
		ps.blitPipeLayout = nil
	}
	if ps.blitLayout != nil {
		ps.device.DestroyBindGroupLayout(ps.blitLayout)
		ps.blitLayout = nil
	}
	if ps.uniformTexPipeLayout != nil {
		ps.device.DestroyPipelineLayout(ps.uniformTexPipeLayout)
		ps.uniformTexPipeLayout = nil
	}
	if ps.uniformTexLayout != nil {
		ps.device.DestroyBindGroupLayout(ps.uniformTexLayout)
		ps.uniformTexLayout = nil
	}
	if ps.sampler != nil {
		ps.device.DestroySampler(ps.sampler)
		ps.sampler = nil
	}
	for i, s := range ps.shaders {
		if s != nil {
			ps.device.DestroyShaderModule(s)
			ps.shaders[i] = nil
		}
	}
}

// rectVertexLayout returns the instance buffer layout for the rect pipeline:
// one buffer stepped per instance, eight vec4 attributes matching the
// Instance struct in rect.wgsl.
func rectVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: render.RectInstanceSize,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},   // dst_rect
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},  // src_rect
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 2},  // color_bl
				{Format: gputypes.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 3},  // color_tl
				{Format: gputypes.VertexFormatFloat32x4, Offset: 64, ShaderLocation: 4},  // color_br
				{Format: gputypes.VertexFormatFloat32x4, Offset: 80, ShaderLocation: 5},  // color_tr
				{Format: gputypes.VertexFormatFloat32x4, Offset: 96, ShaderLocation: 6},  // corner_radii
				{Format: gputypes.VertexFormatFloat32x4, Offset: 112, ShaderLocation: 7}, // style
			},
		},
	}
}

// meshVertexLayouts returns the two mesh buffers: per-vertex attributes at
// locations 0-3 and the per-instance transform columns at locations 4-7.
func meshVertexLayouts() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: render.MeshVertexSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}, // normal
				{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2}, // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3}, // color
			},
		},
		{
			ArrayStride: render.MeshInstanceSize,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 4},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 5},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 6},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 7},
			},
		},
	}
}

package render

import (
	"fmt"

	"github.com/gogpu/naga"
)

// TechniqueKind selects one of the fixed rendering techniques. The set is
// closed: every kind has exactly one vertex stage, one fragment stage, and
// one uniform block size (possibly zero).
type TechniqueKind uint32

// Technique kinds, in per-frame submission order.
const (
	TechniqueRect TechniqueKind = iota
	TechniqueBlur
	TechniqueMesh
	TechniqueGeo3DComposite
	TechniqueFinalize

	techniqueCount
)

// String returns the technique name.
func (k TechniqueKind) String() string {
	switch k {
	case TechniqueRect:
		return "rect"
	case TechniqueBlur:
		return "blur"
	case TechniqueMesh:
		return "mesh"
	case TechniqueGeo3DComposite:
		return "geo3d_composite"
	case TechniqueFinalize:
		return "finalize"
	}
	return fmt.Sprintf("TechniqueKind(%d)", uint32(k))
}

// TechniqueCount is the number of registered technique kinds.
const TechniqueCount = int(techniqueCount)

// StageID identifies a single shading stage: a WGSL module plus an entry
// point. Stage descriptors live in a fixed table; IDs are stable across a
// process lifetime.
type StageID uint32

// Shading stage IDs.
const (
	StageRectVS StageID = iota
	StageRectFS
	StageBlurVS
	StageBlurFS
	StageMeshVS
	StageMeshFS
	StageGeo3DCompositeVS
	StageGeo3DCompositeFS
	StageFinalizeVS
	StageFinalizeFS

	stageCount
)

// StageDesc describes one shading stage.
type StageDesc struct {
	// Source is the WGSL module containing the stage.
	Source string

	// EntryPoint is the stage's entry function within the module.
	EntryPoint string
}

// PipelineDesc is one row of the pipeline registry: the shading-stage pair
// and uniform block size for a technique kind. The host binding layer
// resolves a kind to its desc before binding program and buffers for a draw.
type PipelineDesc struct {
	Vertex      StageID
	Fragment    StageID
	UniformSize int
}

// stageTable holds the descriptor for every shading stage. Built once at
// package init from the embedded WGSL sources; immutable afterwards.
var stageTable [stageCount]StageDesc

// pipelineTable maps TechniqueKind to its pipeline descriptor. Immutable
// after package init; there is no dynamic registration.
var pipelineTable [techniqueCount]PipelineDesc

func init() {
	stageTable = [stageCount]StageDesc{
		StageRectVS:           {Source: rectShaderSource, EntryPoint: "vs_main"},
		StageRectFS:           {Source: rectShaderSource, EntryPoint: "fs_main"},
		StageBlurVS:           {Source: blurShaderSource, EntryPoint: "vs_main"},
		StageBlurFS:           {Source: blurShaderSource, EntryPoint: "fs_main"},
		StageMeshVS:           {Source: meshShaderSource, EntryPoint: "vs_main"},
		StageMeshFS:           {Source: meshShaderSource, EntryPoint: "fs_main"},
		StageGeo3DCompositeVS: {Source: geo3DCompositeShaderSource, EntryPoint: "vs_main"},
		StageGeo3DCompositeFS: {Source: geo3DCompositeShaderSource, EntryPoint: "fs_main"},
		StageFinalizeVS:       {Source: finalizeShaderSource, EntryPoint: "vs_main"},
		StageFinalizeFS:       {Source: finalizeShaderSource, EntryPoint: "fs_main"},
	}

	pipelineTable = [techniqueCount]PipelineDesc{
		TechniqueRect:           {Vertex: StageRectVS, Fragment: StageRectFS, UniformSize: RectUniformsSize},
		TechniqueBlur:           {Vertex: StageBlurVS, Fragment: StageBlurFS, UniformSize: BlurUniformsSize},
		TechniqueMesh:           {Vertex: StageMeshVS, Fragment: StageMeshFS, UniformSize: MeshUniformsSize},
		TechniqueGeo3DComposite: {Vertex: StageGeo3DCompositeVS, Fragment: StageGeo3DCompositeFS, UniformSize: 0},
		TechniqueFinalize:       {Vertex: StageFinalizeVS, Fragment: StageFinalizeFS, UniformSize: 0},
	}
}

// Resolve returns the pipeline descriptor for a technique kind. Lookup is
// O(1) by enum value. An out-of-range kind is a programming error and
// panics; hosts validate the table once at startup via ValidateRegistry.
func Resolve(kind TechniqueKind) PipelineDesc {
	if kind >= techniqueCount {
		panic(fmt.Sprintf("render: no pipeline registered for %v", kind))
	}
	return pipelineTable[kind]
}

// Stage returns the descriptor for a shading stage ID. Panics on an
// out-of-range ID, mirroring Resolve.
func Stage(id StageID) StageDesc {
	if id >= stageCount {
		panic(fmt.Sprintf("render: no shading stage registered for id %d", id))
	}
	return stageTable[id]
}

// ValidateRegistry checks the pipeline registry at startup: every technique
// kind must resolve to non-empty vertex and fragment stages, and every
// uniform size must match its layout constant. Each distinct WGSL module is
// compiled through naga so a broken shading stage fails at initialization
// rather than at first draw.
//
// A failure here is a configuration error in the build, not a runtime
// condition to recover from.
func ValidateRegistry() error {
	for kind := TechniqueKind(0); kind < techniqueCount; kind++ {
		desc := pipelineTable[kind]
		vs, fs := stageTable[desc.Vertex], stageTable[desc.Fragment]
		if vs.Source == "" || vs.EntryPoint == "" {
			return fmt.Errorf("render: %v vertex stage is empty", kind)
		}
		if fs.Source == "" || fs.EntryPoint == "" {
			return fmt.Errorf("render: %v fragment stage is empty", kind)
		}
		if vs.Source != fs.Source {
			return fmt.Errorf("render: %v stages come from different modules", kind)
		}
		if want := uniformSizeFor(kind); desc.UniformSize != want {
			return fmt.Errorf("render: %v uniform size %d does not match layout size %d",
				kind, desc.UniformSize, want)
		}
	}

	// Compile each module once; all stages of a technique share a module.
	compiled := make(map[string]bool, techniqueCount)
	for kind := TechniqueKind(0); kind < techniqueCount; kind++ {
		src := stageTable[pipelineTable[kind].Vertex].Source
		if compiled[src] {
			continue
		}
		if _, err := naga.Compile(src); err != nil {
			return fmt.Errorf("render: compile %v shader: %w", kind, err)
		}
		compiled[src] = true
	}
	return nil
}

// uniformSizeFor returns the layout constant for a technique's uniform
// block.
func uniformSizeFor(kind TechniqueKind) int {
	switch kind {
	case TechniqueRect:
		return RectUniformsSize
	case TechniqueBlur:
		return BlurUniformsSize
	case TechniqueMesh:
		return MeshUniformsSize
	default:
		return 0
	}
}

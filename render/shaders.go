package render

import _ "embed"

// Embedded WGSL shading stages, one module per technique. Each module
// carries both the vertex and fragment entry points named by the stage
// table. The Go-side layout structs in this package must stay byte-exact
// with the uniform blocks declared in these sources.

//go:embed shaders/rect.wgsl
var rectShaderSource string

//go:embed shaders/blur.wgsl
var blurShaderSource string

//go:embed shaders/mesh.wgsl
var meshShaderSource string

//go:embed shaders/geo3d_composite.wgsl
var geo3DCompositeShaderSource string

//go:embed shaders/finalize.wgsl
var finalizeShaderSource string

// ShaderSource returns the WGSL module for a technique kind. Both of the
// kind's shading stages live in the returned module.
func ShaderSource(kind TechniqueKind) string {
	return Stage(Resolve(kind).Vertex).Source
}

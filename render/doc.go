// Package render implements the table-driven GPU rendering backend for the
// 2D/3D UI compositor: the closed set of rendering techniques, the byte-exact
// instance/uniform layouts each technique binds, the shared rounded-rectangle
// SDF math, and the immutable pipeline registry that maps a technique kind to
// its shading stages.
//
// The package is backend-agnostic. Each technique's vertex and fragment
// stages are embedded WGSL modules; render/wgpu executes them over
// github.com/gogpu/wgpu. The CPU evaluators (EvalRect, EvalBlur, EvalMesh,
// EvalComposite) reproduce the fragment math exactly and back the test suite,
// so visual output stays bit-compatible across backends.
//
// Five techniques exist, dispatched through the registry:
//
//   - Rect: instanced rounded-rectangle fill with per-corner colors and
//     radii, borders, softness, and texture compositing.
//   - Blur: two-pass separable blur clipped to a rounded rectangle.
//   - Mesh: instanced 3D mesh with vertex-colored output.
//   - Geo3DComposite: fullscreen merge of an offscreen 3D layer.
//   - Finalize: terminal fullscreen blit with alpha forced to 1.
//
// All per-frame data (instances, uniforms) is produced fresh by the host each
// frame and has no identity across frames. The registry is built once at
// package init and never changes.
package render

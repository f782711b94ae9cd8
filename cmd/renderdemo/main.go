// Command renderdemo renders one frame offscreen and writes it to a PNG:
// a gradient background, rounded panels with borders, a blurred region, and
// a rotating cube composited over the 2D scene.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/Danilodum/raddebugger/render"
	"github.com/Danilodum/raddebugger/render/wgpu"
)

func main() {
	var (
		width  = flag.Int("width", 800, "image width")
		height = flag.Int("height", 600, "image height")
		output = flag.String("output", "demo.png", "output file")
		angle  = flag.Float64("angle", 0.6, "cube rotation in radians")
	)
	flag.Parse()

	backend := wgpu.New()
	if err := backend.Init(); err != nil {
		log.Fatalf("init gpu: %v", err)
	}
	defer backend.Destroy()

	w, h := uint32(*width), uint32(*height)
	renderer, err := wgpu.NewRenderer(backend, w, h)
	if err != nil {
		log.Fatalf("create renderer: %v", err)
	}
	defer renderer.Destroy()

	frame := buildFrame(float32(w), float32(h), float32(*angle))

	pixels := make([]byte, w*h*4)
	if err := renderer.RenderFrame(frame, pixels); err != nil {
		log.Fatalf("render: %v", err)
	}

	if err := savePNG(*output, pixels, int(w), int(h)); err != nil {
		log.Fatalf("save: %v", err)
	}
	log.Printf("demo saved to %s (%dx%d)\n", *output, w, h)
}

func buildFrame(w, h, angle float32) *wgpu.Frame {
	return &wgpu.Frame{
		Clear: gputypes.Color{R: 0.08, G: 0.09, B: 0.12, A: 1},
		Passes: []wgpu.Pass{
			wgpu.RectPass{Batches: []wgpu.RectBatch{backgroundBatch(w, h)}},
			wgpu.BlurPass{Uniforms: blurRegion(w, h)},
			wgpu.RectPass{Batches: []wgpu.RectBatch{panelBatch(w, h)}},
			wgpu.Geo3DPass{Batches: []wgpu.MeshBatch{cubeBatch(w, h, angle)}},
		},
	}
}

func solid(c f32.Vec4) [4]f32.Vec4 {
	return [4]f32.Vec4{c, c, c, c}
}

// backgroundBatch fills the frame with a vertical gradient strip plus a few
// overlapping translucent circles approximated as fully rounded rects.
func backgroundBatch(w, h float32) wgpu.RectBatch {
	instances := []render.RectInstance{
		{
			DstRect: f32.Vec4{0, 0, w, h},
			Colors: [4]f32.Vec4{
				render.CornerBL: {0.10, 0.20, 0.40, 1},
				render.CornerBR: {0.10, 0.20, 0.40, 1},
				render.CornerTL: {0.45, 0.40, 0.55, 1},
				render.CornerTR: {0.45, 0.40, 0.55, 1},
			},
			Style: render.RectStyle{OmitTexture: 1},
		},
	}

	discs := []struct {
		cx, cy, r float32
		color     f32.Vec4
	}{
		{150, 150, 60, f32.Vec4{1, 0.3, 0.3, 0.8}},
		{200, 150, 60, f32.Vec4{0.3, 1, 0.3, 0.8}},
		{175, 200, 60, f32.Vec4{0.3, 0.3, 1, 0.8}},
	}
	for _, d := range discs {
		instances = append(instances, render.RectInstance{
			DstRect:     f32.Vec4{d.cx - d.r, d.cy - d.r, d.cx + d.r, d.cy + d.r},
			Colors:      solid(d.color),
			CornerRadii: f32.Vec4{d.r, d.r, d.r, d.r},
			Style:       render.RectStyle{Softness: 1, OmitTexture: 1},
		})
	}

	return wgpu.RectBatch{
		Uniforms:  render.NewRectUniforms(w, h),
		Instances: instances,
	}
}

// blurRegion blurs a rounded window over the discs.
func blurRegion(w, h float32) render.BlurUniforms {
	u, err := render.NewBlurUniforms(
		f32.Vec2{90, 90}, f32.Vec2{420, 260},
		f32.Vec4{24, 24, 24, 24},
		w, h,
		render.MakeBlurKernel(14),
	)
	if err != nil {
		log.Fatalf("blur uniforms: %v", err)
	}
	return u
}

// panelBatch draws foreground chrome: a bordered panel and a highlight pill.
func panelBatch(w, h float32) wgpu.RectBatch {
	instances := []render.RectInstance{
		{
			DstRect:     f32.Vec4{350, 100, 470, 180},
			Colors:      solid(f32.Vec4{1, 0.8, 0, 0.9}),
			CornerRadii: f32.Vec4{15, 15, 15, 15},
			Style:       render.RectStyle{Softness: 1, OmitTexture: 1},
		},
		{
			DstRect:     f32.Vec4{350, 100, 470, 180},
			Colors:      solid(f32.Vec4{1, 1, 1, 1}),
			CornerRadii: f32.Vec4{15, 15, 15, 15},
			Style:       render.RectStyle{BorderThickness: 4, Softness: 1, OmitTexture: 1},
		},
		{
			DstRect:     f32.Vec4{100, h - 120, 340, h - 72},
			Colors:      solid(f32.Vec4{0.2, 0.6, 1, 0.85}),
			CornerRadii: f32.Vec4{24, 24, 24, 24},
			Style:       render.RectStyle{Softness: 1, OmitTexture: 1},
		},
	}
	return wgpu.RectBatch{
		Uniforms:  render.NewRectUniforms(w, h),
		Instances: instances,
	}
}

// cubeBatch builds a colored cube spun by angle around Y then tilted, viewed
// through a perspective projection.
func cubeBatch(w, h, angle float32) wgpu.MeshBatch {
	model := rotateY(angle).Mul(rotateX(0.45))
	view := translate(0, 0, -4)
	proj := perspective(math32.Pi/4, w/h, 0.1, 100)

	return wgpu.MeshBatch{
		Uniforms:  render.MeshUniforms{ViewProj: proj.Mul(view)},
		Vertices:  cubeVertices(),
		Instances: []render.MeshInstance{{Xform: model}},
	}
}

func cubeVertices() []render.MeshVertex {
	faces := []struct {
		normal [3]float32
		color  f32.Vec4
		// Quad corners in counter-clockwise order.
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, f32.Vec4{1, 0.4, 0.4, 1},
			[4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{[3]float32{0, 0, -1}, f32.Vec4{0.4, 1, 0.4, 1},
			[4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
		{[3]float32{1, 0, 0}, f32.Vec4{0.4, 0.4, 1, 1},
			[4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
		{[3]float32{-1, 0, 0}, f32.Vec4{1, 1, 0.4, 1},
			[4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
		{[3]float32{0, 1, 0}, f32.Vec4{1, 0.4, 1, 1},
			[4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
		{[3]float32{0, -1, 0}, f32.Vec4{0.4, 1, 1, 1},
			[4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
	}

	uvs := [4]f32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	verts := make([]render.MeshVertex, 0, len(faces)*6)
	for _, face := range faces {
		for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
			verts = append(verts, render.MeshVertex{
				Position: face.corners[i],
				Normal:   face.normal,
				UV:       uvs[i],
				Color:    face.color,
			})
		}
	}
	return verts
}

func rotateX(a float32) render.Mat4 {
	s, c := math32.Sincos(a)
	m := render.Mat4Identity()
	m[1] = f32.Vec4{0, c, s, 0}
	m[2] = f32.Vec4{0, -s, c, 0}
	return m
}

func rotateY(a float32) render.Mat4 {
	s, c := math32.Sincos(a)
	m := render.Mat4Identity()
	m[0] = f32.Vec4{c, 0, -s, 0}
	m[2] = f32.Vec4{s, 0, c, 0}
	return m
}

func translate(x, y, z float32) render.Mat4 {
	m := render.Mat4Identity()
	m[3] = f32.Vec4{x, y, z, 1}
	return m
}

// perspective builds a right-handed projection with clip depth in [0,1].
func perspective(fovy, aspect, near, far float32) render.Mat4 {
	f := 1 / math32.Tan(fovy/2)
	return render.Mat4{
		{f / aspect, 0, 0, 0},
		{0, f, 0, 0},
		{0, 0, far / (near - far), -1},
		{0, 0, near * far / (near - far), 0},
	}
}

// savePNG converts the BGRA readback to RGBA and encodes it.
func savePNG(path string, bgra []byte, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(bgra); i += 4 {
		img.Pix[i+0] = bgra[i+2]
		img.Pix[i+1] = bgra[i+1]
		img.Pix[i+2] = bgra[i+0]
		img.Pix[i+3] = bgra[i+3]
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

package render

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		kind        TechniqueKind
		vertex      StageID
		fragment    StageID
		uniformSize int
	}{
		{TechniqueRect, StageRectVS, StageRectFS, RectUniformsSize},
		{TechniqueBlur, StageBlurVS, StageBlurFS, BlurUniformsSize},
		{TechniqueMesh, StageMeshVS, StageMeshFS, MeshUniformsSize},
		{TechniqueGeo3DComposite, StageGeo3DCompositeVS, StageGeo3DCompositeFS, 0},
		{TechniqueFinalize, StageFinalizeVS, StageFinalizeFS, 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			desc := Resolve(tt.kind)
			if desc.Vertex != tt.vertex || desc.Fragment != tt.fragment {
				t.Errorf("Resolve(%v) stages = (%d, %d), want (%d, %d)",
					tt.kind, desc.Vertex, desc.Fragment, tt.vertex, tt.fragment)
			}
			if desc.UniformSize != tt.uniformSize {
				t.Errorf("Resolve(%v).UniformSize = %d, want %d",
					tt.kind, desc.UniformSize, tt.uniformSize)
			}
		})
	}
}

func TestResolvePanicsOnUnknownKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Resolve(out of range) did not panic")
		}
	}()
	Resolve(TechniqueKind(99))
}

func TestStagePanicsOnUnknownID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Stage(out of range) did not panic")
		}
	}()
	Stage(StageID(99))
}

func TestStageTable(t *testing.T) {
	for id := StageID(0); id < stageCount; id++ {
		desc := Stage(id)
		if desc.Source == "" {
			t.Errorf("stage %d has empty source", id)
		}
		if desc.EntryPoint != "vs_main" && desc.EntryPoint != "fs_main" {
			t.Errorf("stage %d entry point = %q", id, desc.EntryPoint)
		}
		if !strings.Contains(desc.Source, "fn "+desc.EntryPoint) {
			t.Errorf("stage %d source does not define %q", id, desc.EntryPoint)
		}
	}
}

func TestStagePairsShareModule(t *testing.T) {
	for kind := TechniqueKind(0); kind < techniqueCount; kind++ {
		desc := Resolve(kind)
		if Stage(desc.Vertex).Source != Stage(desc.Fragment).Source {
			t.Errorf("%v stages come from different modules", kind)
		}
	}
}

func TestValidateRegistry(t *testing.T) {
	if err := ValidateRegistry(); err != nil {
		t.Fatalf("ValidateRegistry() = %v", err)
	}
}

func TestTechniqueKindString(t *testing.T) {
	tests := []struct {
		kind TechniqueKind
		want string
	}{
		{TechniqueRect, "rect"},
		{TechniqueBlur, "blur"},
		{TechniqueMesh, "mesh"},
		{TechniqueGeo3DComposite, "geo3d_composite"},
		{TechniqueFinalize, "finalize"},
		{TechniqueKind(42), "TechniqueKind(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", uint32(tt.kind), got, tt.want)
		}
	}
}

func TestShaderSource(t *testing.T) {
	seen := map[string]TechniqueKind{}
	for kind := TechniqueKind(0); kind < techniqueCount; kind++ {
		src := ShaderSource(kind)
		if src == "" {
			t.Errorf("ShaderSource(%v) is empty", kind)
			continue
		}
		if prev, dup := seen[src]; dup {
			t.Errorf("%v and %v share one shader module", kind, prev)
		}
		seen[src] = kind
	}
}

func BenchmarkResolve(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = Resolve(TechniqueRect)
	}
}

package gapi

import (
	"errors"
	"testing"
)

func TestParseErrorErr(t *testing.T) {
	if err := ParseNoError.Err(); err != nil {
		t.Errorf("ParseNoError.Err() = %v, want nil", err)
	}
	if err := ParseInvalidArguments.Err(); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("ParseInvalidArguments.Err() = %v, want ErrInvalidArguments", err)
	}
	if got := ParseInvalidArguments.String(); got != "InvalidArguments" {
		t.Errorf("String() = %q, want %q", got, "InvalidArguments")
	}
}

func TestFormatBlock(t *testing.T) {
	tests := []struct {
		format TextureFormat
		want   BlockInfo
	}{
		{FormatXRGB8, BlockInfo{4, 1, 1}},
		{FormatARGB8, BlockInfo{4, 1, 1}},
		{FormatABGR16F, BlockInfo{8, 1, 1}},
		{FormatR32F, BlockInfo{4, 1, 1}},
		{FormatABGR32F, BlockInfo{16, 1, 1}},
		{FormatDXT1, BlockInfo{8, 4, 4}},
		{FormatDXT3, BlockInfo{16, 4, 4}},
		{FormatDXT5, BlockInfo{16, 4, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.Block(); got != tt.want {
				t.Errorf("Block() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatBlockPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Block() on FormatUnknown did not panic")
		}
	}()
	_ = FormatUnknown.Block()
}

func TestPrimitiveVertexCount(t *testing.T) {
	tests := []struct {
		prim  PrimitiveType
		count uint32
		want  uint32
	}{
		{PrimitivePoints, 5, 5},
		{PrimitiveLines, 3, 6},
		{PrimitiveLineStrips, 3, 4},
		{PrimitiveTriangles, 2, 6},
		{PrimitiveTriangleStrips, 2, 4},
		{PrimitiveTriangleFans, 4, 6},
	}
	for _, tt := range tests {
		got, ok := tt.prim.VertexCount(tt.count)
		if !ok || got != tt.want {
			t.Errorf("%d.VertexCount(%d) = %d, %v; want %d, true", tt.prim, tt.count, got, ok, tt.want)
		}
	}
	if _, ok := PrimitiveTriangles.VertexCount(0); ok {
		t.Error("VertexCount(0) should report false")
	}
	if _, ok := PrimitiveTriangles.VertexCount(0x60000000); ok {
		t.Error("VertexCount should report false on overflow")
	}
	if _, ok := PrimitiveType(42).VertexCount(1); ok {
		t.Error("VertexCount of an unknown type should report false")
	}
}

func TestEffectParamDescDataSize(t *testing.T) {
	tests := []struct {
		desc EffectParamDesc
		want uint32
	}{
		{EffectParamDesc{Type: ParamFloat1}, 4},
		{EffectParamDesc{Type: ParamFloat3}, 12},
		{EffectParamDesc{Type: ParamMatrix4}, 64},
		{EffectParamDesc{Type: ParamFloat4, NumElements: 8}, 128},
		{EffectParamDesc{Type: ParamSampler}, 4},
	}
	for _, tt := range tests {
		if got := tt.desc.DataSize(); got != tt.want {
			t.Errorf("%+v.DataSize() = %d, want %d", tt.desc, got, tt.want)
		}
	}
}

package core_test

import (
	"context"
	"io"
	"reflect"
	"testing"

	"heiconv/core"
)

type stubDecoder struct{ format core.Format }

func (d stubDecoder) Decode(context.Context, io.Reader) (*core.ImageData, error) {
	return &core.ImageData{}, nil
}
func (d stubDecoder) CanDecode(f core.Format) bool { return f == d.format }

type stubEncoder struct{ format core.Format }

func (e stubEncoder) Encode(context.Context, *core.ImageData, core.EncodeOptions) ([]byte, error) {
	return []byte{0x1}, nil
}
func (e stubEncoder) CanEncode(f core.Format) bool { return f == e.format }

func TestRegistry_LookupAndOverride(t *testing.T) {
	reg := core.NewRegistry()
	if _, ok := reg.DecoderFor(core.FormatPNG); ok {
		t.Fatal("empty registry returned a decoder")
	}

	first := stubDecoder{format: core.FormatPNG}
	reg.RegisterDecoder(core.FormatPNG, first)
	if d, ok := reg.DecoderFor(core.FormatPNG); !ok || d != core.Decoder(first) {
		t.Fatal("registered decoder not returned")
	}

	// A later registration for the same format replaces the binding, which
	// is how the vips backend takes over shared formats.
	second := stubDecoder{format: core.FormatHEIF}
	reg.RegisterDecoder(core.FormatPNG, second)
	if d, _ := reg.DecoderFor(core.FormatPNG); d != core.Decoder(second) {
		t.Fatal("re-registration did not override the decoder")
	}
}

func TestRegistry_EncodableTargets(t *testing.T) {
	reg := core.NewRegistry()
	if got := reg.EncodableTargets(); len(got) != 0 {
		t.Fatalf("empty registry targets: got %v", got)
	}

	// Register out of presentation order; the listing follows
	// TargetFormats order regardless.
	reg.RegisterEncoder(core.FormatBMP, stubEncoder{format: core.FormatBMP})
	reg.RegisterEncoder(core.FormatPNG, stubEncoder{format: core.FormatPNG})
	reg.RegisterEncoder(core.FormatJPEG, stubEncoder{format: core.FormatJPEG})

	want := []core.Format{core.FormatPNG, core.FormatJPEG, core.FormatBMP}
	if got := reg.EncodableTargets(); !reflect.DeepEqual(got, want) {
		t.Errorf("targets: got %v, want %v", got, want)
	}
}

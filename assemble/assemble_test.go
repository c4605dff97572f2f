package assemble

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/wudi/pagekit/raster"
)

func encoded(t *testing.T, w, h int, f raster.Format) raster.Encoded {
	t.Helper()
	enc, err := raster.Encode(raster.Solid(w, h, color.RGBA{200, 10, 10, 255}), f)
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

func TestAssembleImagePDF(t *testing.T) {
	pages := []PageImage{
		{PageNumber: 2, Final: encoded(t, 288, 144, raster.JPEG), NativeWidth: 288, NativeHeight: 144},
		{PageNumber: 1, Final: encoded(t, 144, 288, raster.PNG), NativeWidth: 144, NativeHeight: 288},
	}
	out, err := NewPDFWriter(Config{DPI: 144, Verify: true}).Assemble(context.Background(), pages)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "%PDF-1.7") || !strings.HasSuffix(s, "%%EOF\n") {
		t.Fatalf("not a pdf file")
	}
	for _, want := range []string{"/Count 2", "/DCTDecode", "/FlateDecode", "/MediaBox [0 0 72 144]", "/MediaBox [0 0 144 72]"} {
		if !strings.Contains(s, want) {
			t.Errorf("output lacks %q", want)
		}
	}
	// page 1 (the png) is written first
	if strings.Index(s, "/FlateDecode") > strings.Index(s, "/DCTDecode") {
		t.Errorf("pages not ordered by page number")
	}
}

func TestAssembleErrors(t *testing.T) {
	w := NewPDFWriter(Config{})
	if _, err := w.Assemble(context.Background(), nil); !errors.Is(err, ErrNoPages) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := w.Assemble(context.Background(), []PageImage{{PageNumber: 1, Final: "data:image/png;base64,AAAA"}}); !errors.Is(err, raster.ErrDecode) {
		t.Fatalf("bad raster: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Assemble(ctx, []PageImage{{PageNumber: 1, Final: encoded(t, 2, 2, raster.PNG)}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled: %v", err)
	}
}

func TestNativeSizeFallsBackToImage(t *testing.T) {
	out, err := NewPDFWriter(Config{DPI: 72}).Assemble(context.Background(),
		[]PageImage{{PageNumber: 1, Final: encoded(t, 30, 40, raster.PNG)}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "/MediaBox [0 0 30 40]") {
		t.Fatalf("media box not derived from the raster")
	}
}

func TestSerializeSortsKeys(t *testing.T) {
	got := string(serialize(dict{"B": 1, "A": name("X"), "C": array{ref(3), 1.5, true}}))
	if want := "<</A /X /B 1 /C [3 0 R 1.5000 true]>>"; got != want {
		t.Fatalf("serialize = %q, want %q", got, want)
	}
}

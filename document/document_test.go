package document

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/wudi/pagekit/raster"
)

func solidPage(t *testing.T, w, h int, c color.Color) *Page {
	t.Helper()
	enc, err := raster.Encode(raster.Solid(w, h, c), raster.PNG)
	if err != nil {
		t.Fatal(err)
	}
	return NewPage(enc, w, h, []TextSpan{{Text: "x", Left: 1, Top: 1, Width: 5, Height: 2}})
}

func threePages(t *testing.T) (*Document, []string) {
	t.Helper()
	d := New(
		solidPage(t, 4, 4, color.RGBA{255, 0, 0, 255}),
		solidPage(t, 4, 4, color.RGBA{0, 255, 0, 255}),
		solidPage(t, 4, 4, color.RGBA{0, 0, 255, 255}),
	)
	return d, ids(d)
}

func ids(d *Document) []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.ID
	}
	return out
}

func TestStructuralOperations(t *testing.T) {
	tests := []struct {
		name    string
		op      func(d *Document) (IndexMap, error)
		order   []int // old indices in new order, -1 for a new page
		wantMap IndexMap
	}{
		{
			name:    "insert after 0",
			op:      func(d *Document) (IndexMap, error) { return d.InsertBlank(0, 4, 4, color.White) },
			order:   []int{0, -1, 1, 2},
			wantMap: IndexMap{0: 0, 1: 2, 2: 3},
		},
		{
			name:    "insert at front",
			op:      func(d *Document) (IndexMap, error) { return d.InsertBlank(-1, 4, 4, color.White) },
			order:   []int{-1, 0, 1, 2},
			wantMap: IndexMap{0: 1, 1: 2, 2: 3},
		},
		{
			name:    "delete middle",
			op:      func(d *Document) (IndexMap, error) { return d.Delete(1) },
			order:   []int{0, 2},
			wantMap: IndexMap{0: 0, 2: 1},
		},
		{
			name:    "duplicate last",
			op:      func(d *Document) (IndexMap, error) { return d.Duplicate(2) },
			order:   []int{0, 1, 2, -1},
			wantMap: IndexMap{0: 0, 1: 1, 2: 2},
		},
		{
			name:    "move first to end",
			op:      func(d *Document) (IndexMap, error) { return d.Move(0, 2) },
			order:   []int{1, 2, 0},
			wantMap: IndexMap{0: 2, 1: 0, 2: 1},
		},
		{
			name:    "move last to front",
			op:      func(d *Document) (IndexMap, error) { return d.Move(2, 0) },
			order:   []int{2, 0, 1},
			wantMap: IndexMap{0: 1, 1: 2, 2: 0},
		},
		{
			name:    "reorder is move",
			op:      func(d *Document) (IndexMap, error) { return d.Reorder(1, 2) },
			order:   []int{0, 2, 1},
			wantMap: IndexMap{0: 0, 1: 2, 2: 1},
		},
		{
			name:    "move in place",
			op:      func(d *Document) (IndexMap, error) { return d.Move(1, 1) },
			order:   []int{0, 1, 2},
			wantMap: IndexMap{0: 0, 1: 1, 2: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, before := threePages(t)
			m, err := tt.op(d)
			if err != nil {
				t.Fatalf("op: %v", err)
			}
			if !reflect.DeepEqual(m, tt.wantMap) {
				t.Fatalf("index map = %v, want %v", m, tt.wantMap)
			}
			if d.Len() != len(tt.order) {
				t.Fatalf("len = %d, want %d", d.Len(), len(tt.order))
			}
			for i, old := range tt.order {
				if old >= 0 && d.Pages[i].ID != before[old] {
					t.Fatalf("page %d: got id of a different page", i)
				}
				if old < 0 {
					for _, id := range before {
						if d.Pages[i].ID == id {
							t.Fatalf("new page %d reuses id %s", i, id)
						}
					}
				}
			}
			// every surviving old index maps to where its page now sits
			for old, n := range m {
				if d.Pages[n].ID != before[old] {
					t.Fatalf("map sends %d to %d but the page is elsewhere", old, n)
				}
			}
			if err := d.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestDeleteLastPageRefused(t *testing.T) {
	d := New(solidPage(t, 2, 2, color.White))
	if _, err := d.Delete(0); !errors.Is(err, ErrLastPage) {
		t.Fatalf("Delete last page: got %v, want ErrLastPage", err)
	}
	if d.Len() != 1 {
		t.Fatalf("page removed despite error")
	}
}

func TestOutOfRange(t *testing.T) {
	d, _ := threePages(t)
	checks := []func() error{
		func() error { _, err := d.Delete(3); return err },
		func() error { _, err := d.Move(-1, 0); return err },
		func() error { _, err := d.Move(0, 3); return err },
		func() error { _, err := d.Duplicate(5); return err },
		func() error { _, err := d.InsertBlank(3, 1, 1, color.White); return err },
		func() error { _, err := d.Page(-1); return err },
	}
	for i, c := range checks {
		if err := c(); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("check %d: got %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestDuplicateIsFreshPage(t *testing.T) {
	d, _ := threePages(t)
	d.Pages[1].Edited = d.Pages[0].Original
	if _, err := d.Duplicate(1); err != nil {
		t.Fatal(err)
	}
	src, dup := d.Pages[1], d.Pages[2]
	if dup.ID == src.ID {
		t.Fatalf("duplicate shares identity")
	}
	if dup.Original != src.Original || dup.Edited != src.Edited {
		t.Fatalf("duplicate raster content differs")
	}
	if len(dup.TextSpans) != 0 {
		t.Fatalf("duplicate kept text spans")
	}
}

func TestPasteNormalizesSize(t *testing.T) {
	d, _ := threePages(t)
	clip := solidPage(t, 8, 2, color.Black)
	target := image.Pt(4, 4)
	if _, err := d.Paste(0, clip, &target, color.White); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	p := d.Pages[1]
	if p.Width != 4 || p.Height != 4 {
		t.Fatalf("pasted size %dx%d, want 4x4", p.Width, p.Height)
	}
	img, err := raster.Decode(p.Original)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("pasted raster bounds %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("padding pixel = %v, want white", got)
	}
	if p.ID == clip.ID || len(p.TextSpans) != 0 {
		t.Fatalf("pasted page should be a fresh page")
	}

	same := solidPage(t, 4, 4, color.Black)
	if _, err := d.Paste(3, same, &target, color.White); err != nil {
		t.Fatal(err)
	}
	if d.Pages[4].Original != same.Original {
		t.Fatalf("same-size paste should not re-encode")
	}
}

func TestRelocate(t *testing.T) {
	src := map[int]string{0: "a", 1: "b", 2: "c"}
	got := Relocate(src, IndexMap{0: 2, 2: 0})
	want := map[int]string{2: "a", 0: "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Relocate = %v, want %v", got, want)
	}
}

func TestHitTestSpanFirstMatchWins(t *testing.T) {
	spans := []TextSpan{
		{Text: "first", Left: 10, Top: 10, Width: 4, Height: 2},
		{Text: "second", Left: 11, Top: 10, Width: 4, Height: 2},
		{Text: "far", Left: 50, Top: 50, Width: 2, Height: 2},
	}
	tests := []struct {
		x, y float64
		want int
		ok   bool
	}{
		{12, 11, 0, true},   // inside both: stored order wins
		{14.5, 11, 1, true}, // only inside the second
		{51, 52.4, 2, true}, // outside, but within tolerance of centre (51,51)
		{80, 80, -1, false},
	}
	for _, tt := range tests {
		got, ok := HitTestSpan(spans, tt.x, tt.y, SpanTolerance)
		if got != tt.want || ok != tt.ok {
			t.Errorf("HitTestSpan(%v,%v) = %d,%v want %d,%v", tt.x, tt.y, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCopyIsDetached(t *testing.T) {
	d, _ := threePages(t)
	cp := d.Copy()
	d.Pages[0].Edited = "data:image/png;base64,AAAA"
	d.Pages[0].TextSpans[0].Text = "changed"
	if cp.Pages[0].HasEdit() || cp.Pages[0].TextSpans[0].Text != "x" {
		t.Fatalf("copy shares state with the original")
	}
}

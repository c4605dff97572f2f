package document

import (
	"fmt"
	"image"
	"image/color"

	"github.com/wudi/pagekit/raster"
)

// Insert places p after index after (-1 inserts at the front).
func (d *Document) Insert(after int, p *Page) (IndexMap, error) {
	if p == nil {
		return nil, ErrNoPage
	}
	if after < -1 || after >= len(d.Pages) {
		return nil, fmt.Errorf("%w: insert after %d of %d", ErrIndexOutOfRange, after, len(d.Pages))
	}
	m := insertMap(len(d.Pages), after)
	at := after + 1
	d.Pages = append(d.Pages, nil)
	copy(d.Pages[at+1:], d.Pages[at:])
	d.Pages[at] = p
	d.renumber()
	return m, nil
}

// InsertBlank inserts a w x h page filled with bg after index after.
func (d *Document) InsertBlank(after, w, h int, bg color.Color) (IndexMap, error) {
	enc, err := raster.Encode(raster.Solid(w, h, bg), raster.PNG)
	if err != nil {
		return nil, fmt.Errorf("blank page: %w", err)
	}
	return d.Insert(after, NewPage(enc, w, h, nil))
}

// Delete removes the page at idx. The last remaining page cannot be deleted.
func (d *Document) Delete(idx int) (IndexMap, error) {
	if err := d.checkIndex(idx); err != nil {
		return nil, err
	}
	if len(d.Pages) == 1 {
		return nil, ErrLastPage
	}
	m := deleteMap(len(d.Pages), idx)
	d.Pages = append(d.Pages[:idx], d.Pages[idx+1:]...)
	d.renumber()
	return m, nil
}

// Duplicate inserts an unlinked copy of page idx right after it.
func (d *Document) Duplicate(idx int) (IndexMap, error) {
	if err := d.checkIndex(idx); err != nil {
		return nil, err
	}
	return d.Insert(idx, d.Pages[idx].Clone())
}

// Move relocates the page at from to index to. Pages between shift by one
// towards from.
func (d *Document) Move(from, to int) (IndexMap, error) {
	if err := d.checkIndex(from); err != nil {
		return nil, err
	}
	if err := d.checkIndex(to); err != nil {
		return nil, err
	}
	m := moveMap(len(d.Pages), from, to)
	p := d.Pages[from]
	if from < to {
		copy(d.Pages[from:to], d.Pages[from+1:to+1])
	} else if from > to {
		copy(d.Pages[to+1:from+1], d.Pages[to:from])
	}
	d.Pages[to] = p
	d.renumber()
	return m, nil
}

// Reorder is the drag-and-drop entry point; it has Move semantics.
func (d *Document) Reorder(from, to int) (IndexMap, error) {
	return d.Move(from, to)
}

// CopyPage returns a detached clone of page idx suitable for Paste.
func (d *Document) CopyPage(idx int) (*Page, error) {
	if err := d.checkIndex(idx); err != nil {
		return nil, err
	}
	return d.Pages[idx].Clone(), nil
}

// Paste inserts a copy of clip after index after. When normalizeTo is set and
// differs from the clip's size, its rasters are scaled to fit, centred and
// padded with bg so the pasted page matches its siblings.
func (d *Document) Paste(after int, clip *Page, normalizeTo *image.Point, bg color.Color) (IndexMap, error) {
	if clip == nil {
		return nil, ErrNoPage
	}
	p := clip.Clone()
	if normalizeTo != nil && (normalizeTo.X != clip.Width || normalizeTo.Y != clip.Height) {
		orig, err := fitEncoded(clip.Original, normalizeTo.X, normalizeTo.Y, bg)
		if err != nil {
			return nil, fmt.Errorf("normalize pasted page: %w", err)
		}
		p.Original = orig
		if clip.HasEdit() {
			edited, err := fitEncoded(clip.Edited, normalizeTo.X, normalizeTo.Y, bg)
			if err != nil {
				return nil, fmt.Errorf("normalize pasted page: %w", err)
			}
			p.Edited = edited
		}
		p.Width, p.Height = normalizeTo.X, normalizeTo.Y
	}
	return d.Insert(after, p)
}

func fitEncoded(e raster.Encoded, w, h int, bg color.Color) (raster.Encoded, error) {
	img, err := raster.Decode(e)
	if err != nil {
		return "", err
	}
	return raster.Encode(raster.ScaleToFit(img, w, h, bg), raster.DetectFormat(e))
}

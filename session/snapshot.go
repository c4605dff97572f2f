// Package session persists a crash-recovery snapshot of the editing session:
// the document without its text spans, the active page and a timestamp.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wudi/pagekit/document"
)

// Version is the snapshot format version.
const Version = 1

var (
	ErrCorrupt     = errors.New("session snapshot is corrupt")
	ErrNoSnapshot  = errors.New("no session snapshot")
	ErrBadVersion  = errors.New("unsupported session snapshot version")
	ErrNilDocument = errors.New("snapshot has no document")
)

// Snapshot is one saved session state.
type Snapshot struct {
	Version     int                `json:"version"`
	ActiveIndex int                `json:"activeIndex"`
	Timestamp   time.Time          `json:"timestamp"`
	Document    *document.Document `json:"document"`
}

// New builds a snapshot stamped now.
func New(doc *document.Document, active int) Snapshot {
	return Snapshot{Version: Version, ActiveIndex: active, Timestamp: time.Now().UTC(), Document: doc}
}

// Marshal encodes s with every page's textSpans removed.
func Marshal(s Snapshot) ([]byte, error) {
	if s.Document == nil {
		return nil, ErrNilDocument
	}
	if s.Version == 0 {
		s.Version = Version
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return strip(data)
}

// strip deletes the rasterizer's text geometry from every page. It is
// re-derivable and large.
func strip(data []byte) ([]byte, error) {
	n := int(gjson.GetBytes(data, "document.pages.#").Int())
	var err error
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("document.pages.%d.textSpans", i)
		if !gjson.GetBytes(data, path).Exists() {
			continue
		}
		if data, err = sjson.DeleteBytes(data, path); err != nil {
			return nil, fmt.Errorf("strip %s: %w", path, err)
		}
	}
	return data, nil
}

// Unmarshal decodes and validates a snapshot. An out-of-range active index
// is clamped to the document.
func Unmarshal(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrCorrupt
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, s.Version)
	}
	if s.Document == nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, ErrNilDocument)
	}
	if err := s.Document.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.ActiveIndex < 0 || s.ActiveIndex >= s.Document.Len() {
		s.ActiveIndex = 0
	}
	return &s, nil
}

// Header is the cheap-to-read summary of a stored snapshot.
type Header struct {
	Version     int
	ActiveIndex int
	Timestamp   time.Time
	Pages       int
	Edited      int
}

// Peek reads the header fields without decoding any raster.
func Peek(data []byte) (Header, bool) {
	if !gjson.ValidBytes(data) {
		return Header{}, false
	}
	res := gjson.GetManyBytes(data, "version", "activeIndex", "timestamp", "document.pages.#", "document.pages.#.edited")
	if !res[0].Exists() || !res[3].Exists() {
		return Header{}, false
	}
	h := Header{
		Version:     int(res[0].Int()),
		ActiveIndex: int(res[1].Int()),
		Timestamp:   res[2].Time(),
		Pages:       int(res[3].Int()),
	}
	res[4].ForEach(func(_, v gjson.Result) bool {
		if v.String() != "" {
			h.Edited++
		}
		return true
	})
	return h, true
}

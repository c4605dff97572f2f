package assemble

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// A tiny PDF object model: just what an image-only document needs.

type name string

type ref int

type dict map[string]any

type array []any

type stream struct {
	dict dict
	data []byte
}

func serialize(o any) []byte {
	var b bytes.Buffer
	writeObject(&b, o)
	return b.Bytes()
}

func writeObject(b *bytes.Buffer, o any) {
	switch v := o.(type) {
	case name:
		b.WriteString("/" + string(v))
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float64:
		b.WriteString(formatNumber(v))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case ref:
		fmt.Fprintf(b, "%d 0 R", int(v))
	case array:
		b.WriteByte('[')
		for i, it := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeObject(b, it)
		}
		b.WriteByte(']')
	case dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("/" + k + " ")
			writeObject(b, v[k])
		}
		b.WriteString(">>")
	case *stream:
		v.dict["Length"] = len(v.data)
		writeObject(b, v.dict)
		b.WriteString("\nstream\n")
		b.Write(v.data)
		b.WriteString("\nendstream")
	default:
		b.WriteString("null")
	}
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// file collects numbered objects and serializes them with a cross-reference
// table.
type file struct {
	objects []any
}

// add reserves the next object number for o.
func (f *file) add(o any) ref {
	f.objects = append(f.objects, o)
	return ref(len(f.objects))
}

func (f *file) set(r ref, o any) { f.objects[int(r)-1] = o }

func (f *file) bytes(root ref) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")
	offsets := make([]int, len(f.objects))
	for i, o := range f.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, o)
		buf.WriteString("\nendobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(f.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Root %d 0 R /Size %d>>\nstartxref\n%d\n%%%%EOF\n", int(root), len(f.objects)+1, xref)
	return buf.Bytes()
}

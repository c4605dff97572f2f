package document

// IndexMap relocates per-page state after a structural change: old index to
// new index. Indices with no entry have no target and their state is dropped.
type IndexMap map[int]int

// Lookup returns the new index for old.
func (m IndexMap) Lookup(old int) (int, bool) {
	n, ok := m[old]
	return n, ok
}

// Relocate moves every entry of src to its mapped index. Entries whose index
// has no target are dropped.
func Relocate[V any](src map[int]V, m IndexMap) map[int]V {
	out := make(map[int]V, len(src))
	for old, v := range src {
		if n, ok := m.Lookup(old); ok {
			out[n] = v
		}
	}
	return out
}

func identityMap(n int) IndexMap {
	m := make(IndexMap, n)
	for i := 0; i < n; i++ {
		m[i] = i
	}
	return m
}

func insertMap(n, after int) IndexMap {
	m := make(IndexMap, n)
	for i := 0; i < n; i++ {
		if i <= after {
			m[i] = i
		} else {
			m[i] = i + 1
		}
	}
	return m
}

func deleteMap(n, idx int) IndexMap {
	m := make(IndexMap, n-1)
	for i := 0; i < n; i++ {
		switch {
		case i < idx:
			m[i] = i
		case i > idx:
			m[i] = i - 1
		}
	}
	return m
}

func moveMap(n, from, to int) IndexMap {
	m := identityMap(n)
	m[from] = to
	switch {
	case from < to:
		for i := from + 1; i <= to; i++ {
			m[i] = i - 1
		}
	case from > to:
		for i := to; i < from; i++ {
			m[i] = i + 1
		}
	}
	return m
}

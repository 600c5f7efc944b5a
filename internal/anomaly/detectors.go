package anomaly

import (
	"sort"

	"github.com/hciniramy/elle/internal/history"
)

// DetectAbortedReads flags any read whose value was only ever written by
// a transaction that went on to fail (§7: "a read observes a value from
// a transaction that never committed"). Since an aborted write leaves no
// trace in a correct store, any read matching one is evidence the store
// let a client see an uncommitted write.
func DetectAbortedReads(h *history.History) []Finding {
	failedWriters := failedWriteIndex(h)

	var findings []Finding
	for _, op := range h.Oks() {
		for _, m := range op.Value {
			if m.Type != history.MopRead {
				continue
			}
			for _, v := range observedValues(m) {
				if writer, ok := failedWriters[key{m.Key, v}]; ok {
					findings = append(findings, Finding{
						Type: AbortedRead,
						Ops:  []int{writer.Index, op.Index},
						Detail: map[string]any{
							"key": m.Key, "value": v, "writer": writer.Index, "reader": op.Index,
						},
					})
				}
			}
		}
	}
	return findings
}

// DetectIntermediateReads flags a read observing a value written by a
// transaction partway through its own execution — a value later
// overwritten by that same transaction before it committed (§7).
func DetectIntermediateReads(h *history.History) []Finding {
	intermediate := intermediateWriteIndex(h)

	var findings []Finding
	for _, op := range h.Oks() {
		for _, m := range op.Value {
			if m.Type != history.MopRead {
				continue
			}
			for _, v := range observedValues(m) {
				if writer, ok := intermediate[key{m.Key, v}]; ok && writer.Index != op.Index {
					findings = append(findings, Finding{
						Type: IntermediateRead,
						Ops:  []int{writer.Index, op.Index},
						Detail: map[string]any{
							"key": m.Key, "value": v, "writer": writer.Index, "reader": op.Index,
						},
					})
				}
			}
		}
	}
	return findings
}

// DetectLostUpdates flags two or more transactions that each read the
// same initial value of a key and then independently wrote that key,
// without either observing the other's write (§7) — the read-modify-write
// race a transactional store's isolation level is supposed to prevent.
func DetectLostUpdates(h *history.History) []Finding {
	type readerWriter struct {
		reader, writer history.Op
	}
	groups := make(map[key][]readerWriter)

	for _, op := range h.Oks() {
		readValue := make(map[any]any)
		wroteKey := make(map[any]bool)
		for _, m := range op.Value {
			switch m.Type {
			case history.MopRead:
				if _, seen := readValue[m.Key]; !seen {
					readValue[m.Key] = m.Value
				}
			case history.MopWrite:
				wroteKey[m.Key] = true
			}
		}
		for k := range wroteKey {
			if v, ok := readValue[k]; ok {
				groups[key{k, v}] = append(groups[key{k, v}], readerWriter{reader: op, writer: op})
			}
		}
	}

	var findings []Finding
	for k, rws := range groups {
		if len(rws) < 2 {
			continue
		}
		ops := make([]int, 0, len(rws))
		for _, rw := range rws {
			ops = append(ops, rw.reader.Index)
		}
		sort.Ints(ops)
		findings = append(findings, Finding{
			Type: LostUpdate,
			Ops:  ops,
			Detail: map[string]any{
				"key": k.k, "value": k.v, "txns": ops,
			},
		})
	}
	return findings
}

// key pairs a value-identity (key, value) for use as a map key; values
// are compared by ==, so both fields must hold comparable values (the
// history package's type-sanity check does not enforce this).
type key struct {
	k any
	v any
}

// failedWriteIndex maps (key, value) to the failed op that wrote it, for
// every write inside a transaction whose terminal was Fail.
func failedWriteIndex(h *history.History) map[key]history.Op {
	idx := make(map[key]history.Op)
	for _, op := range h.Fails() {
		for _, m := range op.Value {
			if m.Type == history.MopWrite || m.Type == history.MopAppend {
				idx[key{m.Key, m.Value}] = op
			}
		}
	}
	return idx
}

// intermediateWriteIndex maps (key, value) to the op that wrote it
// non-finally: every write to a key within an op except that op's last
// write to that key.
func intermediateWriteIndex(h *history.History) map[key]history.Op {
	idx := make(map[key]history.Op)
	for _, op := range h.Ops() {
		lastWriteOf := make(map[any]any)
		for _, m := range op.Value {
			if m.Type == history.MopWrite || m.Type == history.MopAppend {
				lastWriteOf[m.Key] = m.Value
			}
		}
		for _, m := range op.Value {
			if m.Type != history.MopWrite && m.Type != history.MopAppend {
				continue
			}
			if m.Value != lastWriteOf[m.Key] {
				idx[key{m.Key, m.Value}] = op
			}
		}
	}
	return idx
}

// observedValues normalizes a read mop's observed value into the set of
// (key-compatible) scalars it asserts were present: a single scalar for
// rw-register reads, or every element for list-append reads (an
// aborted/intermediate list-append write is evidenced by any element of
// the list having come from a failed/non-final append).
func observedValues(m history.Mop) []any {
	if list, ok := m.Value.([]any); ok {
		return list
	}
	return []any{m.Value}
}

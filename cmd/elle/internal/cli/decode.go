package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hciniramy/elle/internal/history"
)

// jsonOp mirrors §6's "structured object form": string-valued type/f and
// mop tags, decoded into the core's history.Op/Mop shape. This decoder
// is CLI-only plumbing, not part of the core the checker package
// implements — per §1's scope note, history-file parsing is an external
// collaborator.
type jsonOp struct {
	Index          int      `json:"index"`
	Process        string   `json:"process"`
	Type           string   `json:"type"`
	F              string   `json:"f"`
	Value          [][3]any `json:"value"`
	InvokeTimeNs   int64    `json:"invoke_time_ns"`
	CompleteTimeNs int64    `json:"complete_time_ns"`
}

// loadHistory reads a JSON array of jsonOp records from path and builds
// a history.History.
func loadHistory(path string) (*history.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var raw []jsonOp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding history JSON: %w", err)
	}

	ops := make([]history.Op, 0, len(raw))
	for _, r := range raw {
		opType, err := decodeOpType(r.Type)
		if err != nil {
			return nil, err
		}
		mops := make([]history.Mop, 0, len(r.Value))
		for _, triple := range r.Value {
			mop, err := decodeMop(triple)
			if err != nil {
				return nil, err
			}
			mops = append(mops, mop)
		}
		ops = append(ops, history.Op{
			Index:        r.Index,
			Process:      r.Process,
			Type:         opType,
			F:            r.F,
			Value:        mops,
			InvokeTime:   r.InvokeTimeNs,
			CompleteTime: r.CompleteTimeNs,
		})
	}

	return history.Build(ops)
}

func decodeOpType(s string) (history.OpType, error) {
	switch s {
	case "invoke":
		return history.Invoke, nil
	case "ok":
		return history.OK, nil
	case "fail":
		return history.Fail, nil
	case "info":
		return history.Info, nil
	default:
		return 0, fmt.Errorf("unrecognized op type %q", s)
	}
}

func decodeMop(triple [3]any) (history.Mop, error) {
	tag, ok := triple[0].(string)
	if !ok {
		return history.Mop{}, fmt.Errorf("mop tag must be a string, got %v", triple[0])
	}
	var mopType history.MopType
	switch tag {
	case "r":
		mopType = history.MopRead
	case "w":
		mopType = history.MopWrite
	case "append":
		mopType = history.MopAppend
	default:
		return history.Mop{}, fmt.Errorf("unrecognized mop tag %q", tag)
	}
	return history.Mop{Type: mopType, Key: normalizeNumber(triple[1]), Value: normalizeValue(triple[2])}, nil
}

// normalizeNumber narrows encoding/json's default float64 decode for a
// key back to an int when it represents one exactly, so the type-sanity
// invariant's integer-width check has something meaningful to compare.
func normalizeNumber(v any) any {
	if f, ok := v.(float64); ok && f == float64(int(f)) {
		return int(f)
	}
	return v
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = normalizeNumber(e)
		}
		return out
	default:
		return normalizeNumber(v)
	}
}

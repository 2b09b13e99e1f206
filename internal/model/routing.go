package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RoutingKind identifies which variant a Routing holds.
type RoutingKind int

const (
	// RoutingNone sends the result to the default project without a case link.
	RoutingNone RoutingKind = iota
	// RoutingLegacy links the result to case IDs of the default project.
	RoutingLegacy
	// RoutingMapped links the result to case IDs of one or more named projects.
	RoutingMapped
)

func (k RoutingKind) String() string {
	switch k {
	case RoutingLegacy:
		return "legacy"
	case RoutingMapped:
		return "mapped"
	default:
		return "none"
	}
}

// ProjectIDs is one entry of a project mapping.
type ProjectIDs struct {
	Code string
	IDs  []int64
}

// Routing describes which project(s) and case(s) a result belongs to.
// It is a tagged variant: exactly one of none, legacy IDs or a project
// mapping is held. The zero value is RoutingNone.
type Routing struct {
	kind    RoutingKind
	ids     []int64
	entries []ProjectIDs
}

// Legacy returns a routing that links a result to case IDs of the default
// project. With no IDs the result is sent unlinked.
func Legacy(ids ...int64) Routing {
	return Routing{kind: RoutingLegacy, ids: cloneIDs(ids)}
}

// Mapped returns a routing to explicit projects. Entries sharing a code are
// merged into the first occurrence. A mapping without entries is RoutingNone.
func Mapped(entries ...ProjectIDs) Routing {
	if len(entries) == 0 {
		return Routing{}
	}
	merged := make([]ProjectIDs, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Code]; ok {
			merged[i].IDs = appendUnique(merged[i].IDs, e.IDs...)
			continue
		}
		index[e.Code] = len(merged)
		merged = append(merged, ProjectIDs{Code: e.Code, IDs: appendUnique(nil, e.IDs...)})
	}
	return Routing{kind: RoutingMapped, entries: merged}
}

// Kind returns the held variant.
func (r Routing) Kind() RoutingKind {
	return r.kind
}

// IsZero reports whether the routing carries no case information at all.
func (r Routing) IsZero() bool {
	switch r.kind {
	case RoutingLegacy:
		return len(r.ids) == 0
	case RoutingMapped:
		return len(r.entries) == 0
	default:
		return true
	}
}

// IDs returns a copy of the legacy case IDs (nil for other variants).
func (r Routing) IDs() []int64 {
	if r.kind != RoutingLegacy {
		return nil
	}
	return cloneIDs(r.ids)
}

// Entries returns a copy of the project mapping (nil for other variants).
func (r Routing) Entries() []ProjectIDs {
	if r.kind != RoutingMapped {
		return nil
	}
	out := make([]ProjectIDs, len(r.entries))
	for i, e := range r.entries {
		out[i] = ProjectIDs{Code: e.Code, IDs: cloneIDs(e.IDs)}
	}
	return out
}

// Equal reports whether two routings hold the same variant and values.
func (r Routing) Equal(other Routing) bool {
	if r.kind != other.kind {
		return false
	}
	if !equalIDs(r.ids, other.ids) || len(r.entries) != len(other.entries) {
		return false
	}
	for i := range r.entries {
		if r.entries[i].Code != other.entries[i].Code || !equalIDs(r.entries[i].IDs, other.entries[i].IDs) {
			return false
		}
	}
	return true
}

func (r Routing) String() string {
	switch r.kind {
	case RoutingLegacy:
		return fmt.Sprintf("legacy%v", r.ids)
	case RoutingMapped:
		var buf bytes.Buffer
		buf.WriteString("mapped{")
		for i, e := range r.entries {
			if i > 0 {
				buf.WriteString(" ")
			}
			fmt.Fprintf(&buf, "%s:%v", e.Code, e.IDs)
		}
		buf.WriteString("}")
		return buf.String()
	default:
		return "none"
	}
}

func cloneIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func appendUnique(dst []int64, ids ...int64) []int64 {
	for _, id := range ids {
		dup := false
		for _, existing := range dst {
			if existing == id {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, id)
		}
	}
	return dst
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// caseIDs decodes a single integer, a numeric string or a list of either.
type caseIDs []int64

func (c *caseIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		ids := make([]int64, 0, len(raw))
		for _, item := range raw {
			id, err := parseCaseID(item)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*c = ids
		return nil
	}
	id, err := parseCaseID(data)
	if err != nil {
		return err
	}
	*c = []int64{id}
	return nil
}

func parseCaseID(data json.RawMessage) (int64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(t)
	default:
		return 0, fmt.Errorf("invalid case id %s", string(data))
	}
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid case id %s", string(data))
	}
	return id, nil
}

// projectMapping is the JSON form of a mapped routing. Object key order is
// preserved in both directions.
type projectMapping []ProjectIDs

func (m projectMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Code)
		if err != nil {
			return nil, err
		}
		ids := e.IDs
		if ids == nil {
			ids = []int64{}
		}
		val, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *projectMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("project mapping must be an object")
	}
	var entries []ProjectIDs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("project mapping key must be a string")
		}
		var ids caseIDs
		if err := dec.Decode(&ids); err != nil {
			return fmt.Errorf("project mapping %q: %w", code, err)
		}
		entries = append(entries, ProjectIDs{Code: code, IDs: ids})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = entries
	return nil
}

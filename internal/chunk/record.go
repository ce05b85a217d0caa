package chunk

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cast"

	"github.com/mapstream/mapstream/internal/strhash"
)

// Flag bits derived from the optional interior metadata.
const (
	FlagContainer uint32 = 1 << 0
	FlagHasParent uint32 = 1 << 1
	FlagInSubset  uint32 = 1 << 2
)

// Record is one normalized entity placement. It is created at the parse
// boundary and never mutated afterwards.
type Record struct {
	// ArchetypeName is kept when the source named the archetype instead of
	// numbering it; Archetype is always the resolved 32-bit id.
	ArchetypeName string
	Archetype     uint32

	Pos   [3]float64
	Rot   [4]float32 // x, y, z, w; identity when the source omits it
	Scale [3]float32

	Guid   uint32
	Parent uint32 // 0 = none
	Subset uint32 // 0 = none
	Tint   uint32
	Flags  uint32
}

var identityRot = [4]float32{0, 0, 0, 1}

// ParseEntity validates one raw entity object from a map document.
// Malformed archetype or position is an error; rotation and scale fall back
// to identity / unit, and the optional interior fields default to zero.
func ParseEntity(v any) (Record, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("entity is not an object")
	}

	var rec Record
	name, id, err := archetypeID(obj["archetype"])
	if err != nil {
		return Record{}, err
	}
	rec.ArchetypeName = name
	rec.Archetype = id

	pos, err := floatTriple(obj["position"])
	if err != nil {
		return Record{}, fmt.Errorf("position: %w", err)
	}
	rec.Pos = pos

	rec.Rot = identityRot
	if rot, err := floatQuad(obj["rotation"]); err == nil {
		rec.Rot = rot
	}
	rec.Scale = [3]float32{1, 1, 1}
	if sc, err := floatTriple(obj["scale"]); err == nil {
		rec.Scale = [3]float32{float32(sc[0]), float32(sc[1]), float32(sc[2])}
	}

	rec.Guid, _ = cast.ToUint32E(obj["guid"])
	rec.Parent, _ = cast.ToUint32E(obj["parent"])
	rec.Tint, _ = cast.ToUint32E(obj["tint"])
	rec.Subset = subsetHash(obj["entitySet"])

	if container, _ := cast.ToBoolE(obj["container"]); container {
		rec.Flags |= FlagContainer
	}
	if rec.Parent != 0 {
		rec.Flags |= FlagHasParent
	}
	if rec.Subset != 0 {
		rec.Flags |= FlagInSubset
	}
	return rec, nil
}

// ParseLine decodes one chunk-file NDJSON line back into a Record. The line
// writer omits default-valued fields, so absent keys take the same defaults
// as ParseEntity.
func ParseLine(line []byte) (Record, error) {
	v, err := oj.Parse(line)
	if err != nil {
		return Record{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("line is not an object")
	}

	var rec Record
	name, id, err := archetypeID(obj["archetype"])
	if err != nil {
		return Record{}, err
	}
	rec.ArchetypeName = name
	rec.Archetype = id

	pos, err := floatTriple(obj["pos"])
	if err != nil {
		return Record{}, fmt.Errorf("pos: %w", err)
	}
	rec.Pos = pos

	rec.Rot = identityRot
	if rot, ok := obj["rot"]; ok {
		q, err := floatQuad(rot)
		if err != nil {
			return Record{}, fmt.Errorf("rot: %w", err)
		}
		rec.Rot = q
	}
	rec.Scale = [3]float32{1, 1, 1}
	if sc, ok := obj["scale"]; ok {
		s, err := floatTriple(sc)
		if err != nil {
			return Record{}, fmt.Errorf("scale: %w", err)
		}
		rec.Scale = [3]float32{float32(s[0]), float32(s[1]), float32(s[2])}
	}

	rec.Guid, _ = cast.ToUint32E(obj["guid"])
	rec.Parent, _ = cast.ToUint32E(obj["parent"])
	rec.Subset, _ = cast.ToUint32E(obj["subset"])
	rec.Tint, _ = cast.ToUint32E(obj["tint"])
	rec.Flags, _ = cast.ToUint32E(obj["flags"])
	return rec, nil
}

// EncodeLine renders a Record as one compact JSON line with sorted keys and
// defaults omitted, so re-runs over identical input are byte-identical.
func EncodeLine(rec Record) string {
	m := map[string]any{
		"pos": []any{rec.Pos[0], rec.Pos[1], rec.Pos[2]},
	}
	if rec.ArchetypeName != "" {
		m["archetype"] = rec.ArchetypeName
	} else {
		m["archetype"] = int64(rec.Archetype)
	}
	if rec.Rot != identityRot {
		m["rot"] = []any{float64(rec.Rot[0]), float64(rec.Rot[1]), float64(rec.Rot[2]), float64(rec.Rot[3])}
	}
	if rec.Scale != [3]float32{1, 1, 1} {
		m["scale"] = []any{float64(rec.Scale[0]), float64(rec.Scale[1]), float64(rec.Scale[2])}
	}
	if rec.Guid != 0 {
		m["guid"] = int64(rec.Guid)
	}
	if rec.Parent != 0 {
		m["parent"] = int64(rec.Parent)
	}
	if rec.Subset != 0 {
		m["subset"] = int64(rec.Subset)
	}
	if rec.Tint != 0 {
		m["tint"] = int64(rec.Tint)
	}
	if rec.Flags != 0 {
		m["flags"] = int64(rec.Flags)
	}
	return oj.JSON(m, &oj.Options{Sort: true})
}

// archetypeID resolves an archetype field: a number is the id itself, a
// numeric string parses as one, and any other name hashes to one.
func archetypeID(v any) (name string, id uint32, err error) {
	switch t := v.(type) {
	case nil:
		return "", 0, fmt.Errorf("archetype missing")
	case string:
		if t == "" {
			return "", 0, fmt.Errorf("archetype empty")
		}
		if n, perr := strconv.ParseUint(t, 10, 32); perr == nil {
			return "", uint32(n), nil
		}
		return t, strhash.OneAtATime(t), nil
	default:
		n, cerr := cast.ToUint32E(v)
		if cerr != nil {
			return "", 0, fmt.Errorf("archetype %v: %w", v, cerr)
		}
		return "", n, nil
	}
}

// subsetHash accepts a numeric entity-set hash or a set name to be hashed.
func subsetHash(v any) uint32 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		if t == "" {
			return 0
		}
		if n, err := strconv.ParseUint(t, 10, 32); err == nil {
			return uint32(n)
		}
		return strhash.OneAtATime(t)
	default:
		n, _ := cast.ToUint32E(v)
		return n
	}
}

func floatTriple(v any) ([3]float64, error) {
	var out [3]float64
	arr, ok := v.([]any)
	if !ok || len(arr) < 3 {
		return out, fmt.Errorf("want 3-element array, got %v", v)
	}
	for i := 0; i < 3; i++ {
		f, err := cast.ToFloat64E(arr[i])
		if err != nil {
			return out, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return out, fmt.Errorf("non-finite component %v", f)
		}
		out[i] = f
	}
	return out, nil
}

func floatQuad(v any) ([4]float32, error) {
	var out [4]float32
	arr, ok := v.([]any)
	if !ok || len(arr) < 4 {
		return out, fmt.Errorf("want 4-element array, got %v", v)
	}
	for i := 0; i < 4; i++ {
		f, err := cast.ToFloat64E(arr[i])
		if err != nil {
			return out, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return out, fmt.Errorf("non-finite component %v", f)
		}
		out[i] = float32(f)
	}
	return out, nil
}

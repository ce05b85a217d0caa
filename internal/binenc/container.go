// Package binenc encodes chunk text records into the two compact binary
// containers the renderer streams: a positions-only form and a full instance
// form. There is no version byte; a reader infers the record revision from
// (file size − header size) / record count, so the set of valid strides
// below is closed and append-only — new fields only ever extend a new,
// larger stride.
package binenc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mapstream/mapstream/internal/chunk"
)

const (
	// 4-byte ASCII magic tags.
	MagicPositions = "CPOS"
	MagicInstances = "CENT"

	// HeaderSize is magic + u32 record count.
	HeaderSize = 8

	PositionStride = 12 // 3×f32

	// Instance record revisions. Quaternions are x,y,z,w throughout.
	StrideV1 = 44 // archetype u32, pos 3×f32, rot 4×f32, scale 3×f32
	StrideV2 = 48 // + tint u32
	StrideV3 = 64 // + guid u32, parent u32, subset u32, flags u32
)

// ErrUnknownStride is returned when a file's size does not exactly match any
// known revision for its stated record count. Guessing here would silently
// desynchronize us from the renderer, so we fail loudly instead.
var ErrUnknownStride = errors.New("binenc: file size matches no known record stride")

// EncodePositions packs just the positions, for low-detail streaming tiers.
func EncodePositions(recs []chunk.Record) []byte {
	buf := make([]byte, 0, HeaderSize+len(recs)*PositionStride)
	buf = appendHeader(buf, MagicPositions, uint32(len(recs)))
	for _, r := range recs {
		buf = appendF32(buf, float32(r.Pos[0]), float32(r.Pos[1]), float32(r.Pos[2]))
	}
	return buf
}

// EncodeInstances packs full instance records at the richest revision.
func EncodeInstances(recs []chunk.Record) []byte {
	buf := make([]byte, 0, HeaderSize+len(recs)*StrideV3)
	buf = appendHeader(buf, MagicInstances, uint32(len(recs)))
	for _, r := range recs {
		buf = binary.LittleEndian.AppendUint32(buf, r.Archetype)
		buf = appendF32(buf, float32(r.Pos[0]), float32(r.Pos[1]), float32(r.Pos[2]))
		buf = appendF32(buf, r.Rot[0], r.Rot[1], r.Rot[2], r.Rot[3])
		buf = appendF32(buf, r.Scale[0], r.Scale[1], r.Scale[2])
		buf = binary.LittleEndian.AppendUint32(buf, r.Tint)
		buf = binary.LittleEndian.AppendUint32(buf, r.Guid)
		buf = binary.LittleEndian.AppendUint32(buf, r.Parent)
		buf = binary.LittleEndian.AppendUint32(buf, r.Subset)
		buf = binary.LittleEndian.AppendUint32(buf, r.Flags)
	}
	return buf
}

// DecodePositions reads a positions-only container.
func DecodePositions(data []byte) ([][3]float32, error) {
	count, err := readHeader(data, MagicPositions)
	if err != nil {
		return nil, err
	}
	if err := checkStride(data, count, PositionStride); err != nil {
		return nil, err
	}
	out := make([][3]float32, count)
	off := HeaderSize
	for i := range out {
		out[i][0] = f32At(data, off)
		out[i][1] = f32At(data, off+4)
		out[i][2] = f32At(data, off+8)
		off += PositionStride
	}
	return out, nil
}

// DecodeInstances reads an instance container of any known revision. Fields
// a revision predates are left at their documented defaults.
func DecodeInstances(data []byte) ([]chunk.Record, error) {
	count, err := readHeader(data, MagicInstances)
	if err != nil {
		return nil, err
	}
	stride, err := inferStride(data, count)
	if err != nil {
		return nil, err
	}

	out := make([]chunk.Record, count)
	off := HeaderSize
	for i := range out {
		r := &out[i]
		r.Archetype = binary.LittleEndian.Uint32(data[off:])
		r.Pos = [3]float64{
			float64(f32At(data, off+4)),
			float64(f32At(data, off+8)),
			float64(f32At(data, off+12)),
		}
		r.Rot = [4]float32{f32At(data, off+16), f32At(data, off+20), f32At(data, off+24), f32At(data, off+28)}
		r.Scale = [3]float32{f32At(data, off+32), f32At(data, off+36), f32At(data, off+40)}
		if stride >= StrideV2 {
			r.Tint = binary.LittleEndian.Uint32(data[off+44:])
		}
		if stride >= StrideV3 {
			r.Guid = binary.LittleEndian.Uint32(data[off+48:])
			r.Parent = binary.LittleEndian.Uint32(data[off+52:])
			r.Subset = binary.LittleEndian.Uint32(data[off+56:])
			r.Flags = binary.LittleEndian.Uint32(data[off+60:])
		}
		off += stride
	}
	return out, nil
}

// inferStride is the single place the (revision → stride) set lives.
func inferStride(data []byte, count uint32) (int, error) {
	if count == 0 {
		if len(data) != HeaderSize {
			return 0, ErrUnknownStride
		}
		return StrideV3, nil
	}
	body := len(data) - HeaderSize
	if body < 0 || body%int(count) != 0 {
		return 0, ErrUnknownStride
	}
	switch stride := body / int(count); stride {
	case StrideV1, StrideV2, StrideV3:
		return stride, nil
	default:
		return 0, ErrUnknownStride
	}
}

func checkStride(data []byte, count uint32, stride int) error {
	if len(data) != HeaderSize+int(count)*stride {
		return ErrUnknownStride
	}
	return nil
}

func appendHeader(buf []byte, magic string, count uint32) []byte {
	buf = append(buf, magic...)
	return binary.LittleEndian.AppendUint32(buf, count)
}

func readHeader(data []byte, magic string) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, fmt.Errorf("binenc: truncated header (%d bytes)", len(data))
	}
	if string(data[:4]) != magic {
		return 0, fmt.Errorf("binenc: bad magic %q, want %q", data[:4], magic)
	}
	return binary.LittleEndian.Uint32(data[4:]), nil
}

func appendF32(buf []byte, vals ...float32) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func f32At(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

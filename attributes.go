package dseed

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Key identifies an attribute.
type Key string

// Well-known attribute keys.
const (
	// AttrFrameDuration is the display duration of an animation frame (int64 ns).
	AttrFrameDuration Key = "dseed.frame.duration"
	// AttrLoopCount is the number of times an animation repeats, 0 = forever (int32).
	AttrLoopCount Key = "dseed.animation.loop_count"
	// AttrCursorHotspot is the cursor hotspot (point, see SetPoint).
	AttrCursorHotspot Key = "dseed.cursor.hotspot"
	// AttrMipLevels is the mip level count stored in a texture container (int32).
	AttrMipLevels Key = "dseed.texture.mip_levels"
	// AttrResolution is the physical resolution in pixels per meter (size).
	AttrResolution Key = "dseed.image.resolution"
	// AttrContainer names the container a bitmap or sample was decoded from (string).
	AttrContainer Key = "dseed.container"

	AttrTitle     Key = "dseed.info.title"
	AttrArtist    Key = "dseed.info.artist"
	AttrAlbum     Key = "dseed.info.album"
	AttrComment   Key = "dseed.info.comment"
	AttrGenre     Key = "dseed.info.genre"
	AttrDate      Key = "dseed.info.date"
	AttrCopyright Key = "dseed.info.copyright"
	AttrSoftware  Key = "dseed.info.software"
)

// ValueKind is the stored type of an attribute value.
type ValueKind uint8

const (
	KindInt32 ValueKind = iota + 1
	KindInt64
	KindFloat
	KindDouble
	KindString
	KindObject
	KindStruct
)

func (k ValueKind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

type attrValue struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    []byte
	obj  Object
}

// Attributes is a typed key/value store for per-frame metadata.
//
// Object values are retained on insertion and released when overwritten,
// deleted or cleared. Attributes are safe for concurrent use.
type Attributes struct {
	mu     sync.RWMutex
	values map[Key]attrValue
}

// NewAttributes returns an empty store.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[Key]attrValue)}
}

func (a *Attributes) set(key Key, v attrValue) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.values == nil {
		a.values = make(map[Key]attrValue)
	}
	if old, ok := a.values[key]; ok && old.obj != nil {
		old.obj.Release()
	}
	a.values[key] = v
}

func (a *Attributes) get(key Key, kind ValueKind) (attrValue, error) {
	a.mu.RLock()
	v, ok := a.values[key]
	a.mu.RUnlock()
	if !ok {
		return attrValue{}, fmt.Errorf("attribute %q: %w", key, ErrOutOfRange)
	}
	if v.kind != kind {
		return attrValue{}, fmt.Errorf("attribute %q is %s, not %s: %w", key, v.kind, kind, ErrInvalidArgs)
	}
	return v, nil
}

func (a *Attributes) SetInt32(key Key, v int32)     { a.set(key, attrValue{kind: KindInt32, i: int64(v)}) }
func (a *Attributes) SetInt64(key Key, v int64)     { a.set(key, attrValue{kind: KindInt64, i: v}) }
func (a *Attributes) SetFloat(key Key, v float32)   { a.set(key, attrValue{kind: KindFloat, f: float64(v)}) }
func (a *Attributes) SetDouble(key Key, v float64)  { a.set(key, attrValue{kind: KindDouble, f: v}) }
func (a *Attributes) SetString(key Key, v string)   { a.set(key, attrValue{kind: KindString, s: v}) }
func (a *Attributes) SetStruct(key Key, blob []byte) { a.set(key, attrValue{kind: KindStruct, b: slices.Clone(blob)}) }

// SetObject stores obj, retaining it.
func (a *Attributes) SetObject(key Key, obj Object) {
	obj.Retain()
	a.set(key, attrValue{kind: KindObject, obj: obj})
}

// SetSize packs a size into an int64 (width in the high 32 bits).
func (a *Attributes) SetSize(key Key, s Size2i) {
	a.SetInt64(key, int64(uint64(uint32(s.Width))<<32|uint64(uint32(s.Height))))
}

// SetPoint packs a point into an int64 (x in the high 32 bits).
func (a *Attributes) SetPoint(key Key, p Point2i) {
	a.SetSize(key, Size2i{Width: p.X, Height: p.Y})
}

// SetFraction packs a fraction into an int64 (numerator in the high 32 bits).
func (a *Attributes) SetFraction(key Key, f Fraction) {
	a.SetInt64(key, int64(uint64(uint32(f.Num))<<32|uint64(uint32(f.Den))))
}

func (a *Attributes) Int32(key Key) (int32, error) {
	v, err := a.get(key, KindInt32)
	return int32(v.i), err
}

func (a *Attributes) Int64(key Key) (int64, error) {
	v, err := a.get(key, KindInt64)
	return v.i, err
}

func (a *Attributes) Float(key Key) (float32, error) {
	v, err := a.get(key, KindFloat)
	return float32(v.f), err
}

func (a *Attributes) Double(key Key) (float64, error) {
	v, err := a.get(key, KindDouble)
	return v.f, err
}

func (a *Attributes) StringValue(key Key) (string, error) {
	v, err := a.get(key, KindString)
	return v.s, err
}

// Struct returns a copy of a struct blob.
func (a *Attributes) Struct(key Key) ([]byte, error) {
	v, err := a.get(key, KindStruct)
	return slices.Clone(v.b), err
}

// Object returns a stored object, retained on behalf of the caller.
func (a *Attributes) Object(key Key) (Object, error) {
	v, err := a.get(key, KindObject)
	if err != nil {
		return nil, err
	}
	v.obj.Retain()
	return v.obj, nil
}

func (a *Attributes) Size(key Key) (Size2i, error) {
	v, err := a.Int64(key)
	if err != nil {
		return Size2i{}, err
	}
	return Size2i{Width: int(int32(uint64(v) >> 32)), Height: int(int32(uint32(v)))}, nil
}

func (a *Attributes) Point(key Key) (Point2i, error) {
	s, err := a.Size(key)
	return Point2i{X: s.Width, Y: s.Height}, err
}

func (a *Attributes) Fraction(key Key) (Fraction, error) {
	v, err := a.Int64(key)
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Num: int32(uint64(v) >> 32), Den: int32(uint32(v))}, nil
}

// Kind returns the stored kind of key, or 0 when absent.
func (a *Attributes) Kind(key Key) ValueKind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.values[key].kind
}

// Has reports whether key is present.
func (a *Attributes) Has(key Key) bool { return a.Kind(key) != 0 }

// Delete removes key, releasing a stored object.
func (a *Attributes) Delete(key Key) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.values[key]; ok {
		if v.obj != nil {
			v.obj.Release()
		}
		delete(a.values, key)
	}
}

// Clear removes every key.
func (a *Attributes) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range a.values {
		if v.obj != nil {
			v.obj.Release()
		}
	}
	clear(a.values)
}

// Len returns the number of stored keys.
func (a *Attributes) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}

// Keys returns the stored keys in sorted order.
func (a *Attributes) Keys() []Key {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Sorted(maps.Keys(a.values))
}

// CopyTo copies every value into dst, retaining objects.
func (a *Attributes) CopyTo(dst *Attributes) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for k, v := range a.values {
		if v.obj != nil {
			v.obj.Retain()
		}
		dst.set(k, v)
	}
}

var _ msgpack.CustomEncoder = (*Attributes)(nil)
var _ msgpack.CustomDecoder = (*Attributes)(nil)

// EncodeMsgpack writes the store as a map of key -> [kind, value].
// Object values have no wire form and are skipped.
func (a *Attributes) EncodeMsgpack(enc *msgpack.Encoder) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]Key, 0, len(a.values))
	for k, v := range a.values {
		if v.kind != KindObject {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		v := a.values[k]
		if err := enc.EncodeString(string(k)); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
			return err
		}
		var err error
		switch v.kind {
		case KindInt32:
			err = enc.EncodeInt32(int32(v.i))
		case KindInt64:
			err = enc.EncodeInt64(v.i)
		case KindFloat:
			err = enc.EncodeFloat32(float32(v.f))
		case KindDouble:
			err = enc.EncodeFloat64(v.f)
		case KindString:
			err = enc.EncodeString(v.s)
		case KindStruct:
			err = enc.EncodeBytes(v.b)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads a store written by EncodeMsgpack, merging into a.
func (a *Attributes) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		if l, err := dec.DecodeArrayLen(); err != nil {
			return err
		} else if l != 2 {
			return fmt.Errorf("attribute %q: bad tuple length %d: %w", k, l, ErrCorruptedData)
		}
		kind, err := dec.DecodeUint8()
		if err != nil {
			return err
		}
		key := Key(k)
		switch ValueKind(kind) {
		case KindInt32:
			v, err := dec.DecodeInt32()
			if err != nil {
				return err
			}
			a.SetInt32(key, v)
		case KindInt64:
			v, err := dec.DecodeInt64()
			if err != nil {
				return err
			}
			a.SetInt64(key, v)
		case KindFloat:
			v, err := dec.DecodeFloat32()
			if err != nil {
				return err
			}
			a.SetFloat(key, v)
		case KindDouble:
			v, err := dec.DecodeFloat64()
			if err != nil {
				return err
			}
			a.SetDouble(key, v)
		case KindString:
			v, err := dec.DecodeString()
			if err != nil {
				return err
			}
			a.SetString(key, v)
		case KindStruct:
			v, err := dec.DecodeBytes()
			if err != nil {
				return err
			}
			a.SetStruct(key, v)
		default:
			return fmt.Errorf("attribute %q: unknown kind %d: %w", k, kind, ErrCorruptedData)
		}
	}
	return nil
}

// MarshalAttributes serializes a with msgpack.
func MarshalAttributes(a *Attributes) ([]byte, error) {
	return msgpack.Marshal(a)
}

// UnmarshalAttributes parses data produced by MarshalAttributes.
func UnmarshalAttributes(data []byte) (*Attributes, error) {
	a := NewAttributes()
	if err := msgpack.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("dseed: unmarshal attributes: %w", err)
	}
	return a, nil
}

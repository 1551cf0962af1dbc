package storedvalue

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Kind identifies the stored representation of a single value node.
type Kind int32

const (
	KindUnknown Kind = iota
	KindUndefined
	KindNull
	KindBoolean
	KindBooleanObject
	KindNumber
	KindNumberObject
	KindString
	KindStringObject
	KindArrayBuffer
	KindInt8Array
	KindUint8Array
	KindUint8ClampedArray
	KindInt16Array
	KindUint16Array
	KindInt32Array
	KindUint32Array
	KindFloat32Array
	KindFloat64Array
	KindDataView
	KindArray
	KindObject
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "Undefined"
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindBooleanObject:
		return "BooleanObject"
	case KindNumber:
		return "Number"
	case KindNumberObject:
		return "NumberObject"
	case KindString:
		return "String"
	case KindStringObject:
		return "StringObject"
	case KindArrayBuffer:
		return "ArrayBuffer"
	case KindInt8Array:
		return "Int8Array"
	case KindUint8Array:
		return "Uint8Array"
	case KindUint8ClampedArray:
		return "Uint8ClampedArray"
	case KindInt16Array:
		return "Int16Array"
	case KindUint16Array:
		return "Uint16Array"
	case KindInt32Array:
		return "Int32Array"
	case KindUint32Array:
		return "Uint32Array"
	case KindFloat32Array:
		return "Float32Array"
	case KindFloat64Array:
		return "Float64Array"
	case KindDataView:
		return "DataView"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindFunction:
		return "Function"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// IsBinary reports whether the kind stores raw bytes plus a view subtype.
func (k Kind) IsBinary() bool {
	return k >= KindArrayBuffer && k <= KindDataView
}

// Value is the flat, serializable form of a single host value. Exactly one
// of the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind    `bson:"kind"`
	Bool   bool    `bson:"bool,omitempty"`
	Number float64 `bson:"number,omitempty"`
	Str    string  `bson:"string,omitempty"`
	Bytes  []byte  `bson:"bytes,omitempty"`

	// ArrayLength is set for KindArray only. It records the array length
	// explicitly so trailing holes survive a round trip.
	ArrayLength *uint32 `bson:"arrayLength,omitempty"`

	// Entries are the properties of KindArray and KindObject values.
	Entries []Entry `bson:"entries,omitempty"`
}

// Entry is a single named property of an object or array value.
type Entry struct {
	Key   string `bson:"key"`
	Value Value  `bson:"value"`
}

// MarshalBinary serializes the value as a BSON document for blob storage.
func (v *Value) MarshalBinary() ([]byte, error) {
	return bson.Marshal(v)
}

// UnmarshalBinary decodes a BSON document previously produced by
// MarshalBinary. Callers treat a failure here as corrupted stored data.
func (v *Value) UnmarshalBinary(data []byte) error {
	return bson.Unmarshal(data, v)
}

// Host-side wrapper types. These model the engine-native values that have no
// direct Go equivalent. The wrapper pointers carry object identity, so the
// same instance appearing twice in one value graph is a clone error.

// Undefined is the host representation of an undefined value.
type Undefined struct{}

// BooleanObject is a boxed boolean (the `new Boolean(x)` form).
type BooleanObject struct{ Value bool }

// NumberObject is a boxed number.
type NumberObject struct{ Value float64 }

// StringObject is a boxed string.
type StringObject struct{ Value string }

// BufferView is a raw byte buffer together with the typed view that should
// be reconstructed for it. A plain []byte is shorthand for an ArrayBuffer.
type BufferView struct {
	Kind Kind
	Data []byte
}

// NewBufferView builds a typed view over data. It panics if kind is not one
// of the binary kinds; that is a programming error, not input error.
func NewBufferView(kind Kind, data []byte) *BufferView {
	if !kind.IsBinary() {
		panic(fmt.Sprintf("storedvalue: %v is not a binary kind", kind))
	}
	return &BufferView{Kind: kind, Data: data}
}

// DataCloneError is returned by Encode when a value cannot be stored: a
// duplicated object reference, a function, or an unsupported host type.
type DataCloneError struct {
	Message string
}

func (e *DataCloneError) Error() string {
	if e.Message == "" {
		return "DataCloneError"
	}
	return "DataCloneError: " + e.Message
}

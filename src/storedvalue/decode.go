package storedvalue

import (
	"fmt"
	"strconv"
)

// Decode reconstructs the host value for a stored Value. It is total for
// any value produced by Encode; an unknown kind means the stored bytes were
// not produced by this codec and is a programming error.
func Decode(item *Value) interface{} {
	switch item.Kind {
	case KindUndefined:
		return Undefined{}
	case KindNull:
		return nil
	case KindBoolean:
		return item.Bool
	case KindNumber:
		return item.Number
	case KindString:
		return item.Str

	case KindBooleanObject:
		return &BooleanObject{Value: item.Bool}
	case KindNumberObject:
		return &NumberObject{Value: item.Number}
	case KindStringObject:
		return &StringObject{Value: item.Str}

	case KindArrayBuffer:
		return append([]byte(nil), item.Bytes...)
	case KindInt8Array, KindUint8Array, KindUint8ClampedArray, KindInt16Array,
		KindUint16Array, KindInt32Array, KindUint32Array, KindFloat32Array,
		KindFloat64Array, KindDataView:
		return &BufferView{Kind: item.Kind, Data: append([]byte(nil), item.Bytes...)}

	case KindArray:
		length := len(item.Entries)
		if item.ArrayLength != nil {
			length = int(*item.ArrayLength)
		}
		ret := make([]interface{}, length)
		for i := range item.Entries {
			entry := &item.Entries[i]
			index, err := strconv.Atoi(entry.Key)
			if err != nil || index < 0 || index >= length {
				continue
			}
			ret[index] = Decode(&entry.Value)
		}
		return ret
	case KindObject:
		ret := make(map[string]interface{}, len(item.Entries))
		for i := range item.Entries {
			entry := &item.Entries[i]
			ret[entry.Key] = Decode(&entry.Value)
		}
		return ret
	default:
		panic(fmt.Sprintf("storedvalue: invalid stored value kind %v", item.Kind))
	}
}

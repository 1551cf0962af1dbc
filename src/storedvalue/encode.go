package storedvalue

import (
	"fmt"
	"reflect"
	"sort"
)

// Encode converts a host value graph into its flat stored form. The graph
// must be acyclic and must not contain the same object reference twice;
// violations fail with *DataCloneError, as do functions and any host type
// outside the supported set.
func Encode(input interface{}) (*Value, error) {
	seen := make([]uintptr, 0, 8)
	out := &Value{}
	if err := storeValue(input, out, &seen); err != nil {
		return nil, err
	}
	return out, nil
}

// objectRef returns the identity of input if it is an object reference.
// Scalars (and zero-capacity slices, which may share the runtime's zero
// base address) have no identity and are never deduplicated.
func objectRef(input interface{}) (uintptr, bool) {
	switch v := input.(type) {
	case map[string]interface{}:
		if v == nil {
			return 0, false
		}
		return reflect.ValueOf(v).Pointer(), true
	case []interface{}:
		if cap(v) == 0 {
			return 0, false
		}
		return reflect.ValueOf(v).Pointer(), true
	case []byte:
		if cap(v) == 0 {
			return 0, false
		}
		return reflect.ValueOf(v).Pointer(), true
	case *BooleanObject, *NumberObject, *StringObject, *BufferView:
		return reflect.ValueOf(v).Pointer(), true
	default:
		return 0, false
	}
}

func storeValue(input interface{}, output *Value, seen *[]uintptr) error {
	// Remember objects we have seen and fail if we see duplicates.
	if ref, isObject := objectRef(input); isObject {
		for _, prev := range *seen {
			if prev == ref {
				return &DataCloneError{
					Message: "Duplicate copies of the same object are not supported.",
				}
			}
		}
		*seen = append(*seen, ref)
	}

	*output = Value{}
	switch v := input.(type) {
	case nil:
		output.Kind = KindNull
	case Undefined:
		output.Kind = KindUndefined
	case bool:
		output.Kind = KindBoolean
		output.Bool = v
	case *BooleanObject:
		if v == nil {
			output.Kind = KindNull
			break
		}
		output.Kind = KindBooleanObject
		output.Bool = v.Value
	case float64:
		output.Kind = KindNumber
		output.Number = v
	case float32:
		output.Kind = KindNumber
		output.Number = float64(v)
	case int:
		output.Kind = KindNumber
		output.Number = float64(v)
	case int32:
		output.Kind = KindNumber
		output.Number = float64(v)
	case int64:
		output.Kind = KindNumber
		output.Number = float64(v)
	case uint32:
		output.Kind = KindNumber
		output.Number = float64(v)
	case *NumberObject:
		if v == nil {
			output.Kind = KindNull
			break
		}
		output.Kind = KindNumberObject
		output.Number = v.Value
	case string:
		output.Kind = KindString
		output.Str = v
	case *StringObject:
		if v == nil {
			output.Kind = KindNull
			break
		}
		output.Kind = KindStringObject
		output.Str = v.Value
	case []byte:
		output.Kind = KindArrayBuffer
		output.Bytes = append([]byte(nil), v...)
	case *BufferView:
		if v == nil {
			output.Kind = KindNull
			break
		}
		if !v.Kind.IsBinary() {
			return &DataCloneError{Message: fmt.Sprintf("%v is not a binary view kind", v.Kind)}
		}
		output.Kind = v.Kind
		output.Bytes = append([]byte(nil), v.Data...)
	case []interface{}:
		output.Kind = KindArray
		length := uint32(len(v))
		output.ArrayLength = &length
		output.Entries = make([]Entry, 0, len(v))
		for i, elem := range v {
			entry := Entry{Key: fmt.Sprintf("%d", i)}
			if err := storeValue(elem, &entry.Value, seen); err != nil {
				return err
			}
			output.Entries = append(output.Entries, entry)
		}
	case map[string]interface{}:
		output.Kind = KindObject
		// Sort for a deterministic encoding; property order is not part of
		// the value's observable identity.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		output.Entries = make([]Entry, 0, len(v))
		for _, key := range keys {
			entry := Entry{Key: key}
			if err := storeValue(v[key], &entry.Value, seen); err != nil {
				return err
			}
			output.Entries = append(output.Entries, entry)
		}
	default:
		if reflect.ValueOf(input).Kind() == reflect.Func {
			return &DataCloneError{Message: "Functions cannot be stored."}
		}
		return &DataCloneError{
			Message: fmt.Sprintf("Values of type %T cannot be stored.", input),
		}
	}

	return nil
}

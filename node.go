package mpv

import (
	"fmt"
	"math"
	"sort"
	"unsafe"
)

// Node values decode to: nil, string, bool, int64, float64, []any,
// map[string]any or []byte.

func (n *mpvNode) ptr() unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&n.u))
}

func (n *mpvNode) setPtr(p unsafe.Pointer) {
	*(*unsafe.Pointer)(unsafe.Pointer(&n.u)) = p
}

func decodeNode(n *mpvNode) any {
	if n == nil {
		return nil
	}
	switch Format(n.format) {
	case FormatString, FormatOSDString:
		return goString(n.ptr())
	case FormatFlag:
		return *(*int32)(unsafe.Pointer(&n.u)) != 0
	case FormatInt64:
		return int64(n.u)
	case FormatDouble:
		return math.Float64frombits(n.u)
	case FormatNodeArray:
		list := (*mpvNodeList)(n.ptr())
		if list == nil || list.num <= 0 {
			return []any{}
		}
		values := unsafe.Slice((*mpvNode)(list.values), int(list.num))
		out := make([]any, len(values))
		for i := range values {
			out[i] = decodeNode(&values[i])
		}
		return out
	case FormatNodeMap:
		list := (*mpvNodeList)(n.ptr())
		if list == nil || list.num <= 0 {
			return map[string]any{}
		}
		values := unsafe.Slice((*mpvNode)(list.values), int(list.num))
		keys := goStrings(list.keys, int(list.num))
		out := make(map[string]any, len(values))
		for i := range values {
			out[keys[i]] = decodeNode(&values[i])
		}
		return out
	case FormatByteArray:
		ba := (*mpvByteArray)(n.ptr())
		if ba == nil || ba.size == 0 {
			return []byte{}
		}
		return append([]byte(nil), unsafe.Slice((*byte)(ba.data), int(ba.size))...)
	default:
		return nil
	}
}

// encodeNode writes v into dst, allocating any nested storage from a.
func encodeNode(a *Arena, v any, dst *mpvNode) error {
	switch x := v.(type) {
	case nil:
		dst.format = int32(FormatNone)
	case string:
		dst.format = int32(FormatString)
		dst.setPtr(a.CString(x))
	case bool:
		dst.format = int32(FormatFlag)
		var flag int32
		if x {
			flag = 1
		}
		dst.u = 0
		*(*int32)(unsafe.Pointer(&dst.u)) = flag
	case int:
		dst.format, dst.u = int32(FormatInt64), uint64(int64(x))
	case int32:
		dst.format, dst.u = int32(FormatInt64), uint64(int64(x))
	case int64:
		dst.format, dst.u = int32(FormatInt64), uint64(x)
	case float32:
		dst.format, dst.u = int32(FormatDouble), math.Float64bits(float64(x))
	case float64:
		dst.format, dst.u = int32(FormatDouble), math.Float64bits(x)
	case []byte:
		ba := arenaNew[mpvByteArray](a)
		if len(x) > 0 {
			ba.data = a.Alloc(uintptr(len(x)))
			copy(unsafe.Slice((*byte)(ba.data), len(x)), x)
		}
		ba.size = uintptr(len(x))
		dst.format = int32(FormatByteArray)
		dst.setPtr(unsafe.Pointer(ba))
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return encodeNode(a, items, dst)
	case []any:
		list, err := encodeList(a, x, nil)
		if err != nil {
			return err
		}
		dst.format = int32(FormatNodeArray)
		dst.setPtr(unsafe.Pointer(list))
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		return encodeNode(a, m, dst)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = x[k]
		}
		list, err := encodeList(a, values, keys)
		if err != nil {
			return err
		}
		dst.format = int32(FormatNodeMap)
		dst.setPtr(unsafe.Pointer(list))
	default:
		return invalidArgument("encode node", fmt.Sprintf("unsupported type %T", v))
	}
	return nil
}

func encodeList(a *Arena, values []any, keys []string) (*mpvNodeList, error) {
	list := arenaNew[mpvNodeList](a)
	list.num = int32(len(values))
	if len(values) == 0 {
		return list, nil
	}
	list.values = a.Alloc(unsafe.Sizeof(mpvNode{}) * uintptr(len(values)))
	nodes := unsafe.Slice((*mpvNode)(list.values), len(values))
	for i, v := range values {
		if err := encodeNode(a, v, &nodes[i]); err != nil {
			return nil, err
		}
	}
	if keys != nil {
		list.keys = a.CStringArray(keys)
	}
	return list, nil
}

// decodeValue reads data laid out as format.
func decodeValue(format Format, data unsafe.Pointer) any {
	if data == nil {
		return nil
	}
	switch format {
	case FormatFlag:
		return *(*int32)(data) != 0
	case FormatInt64:
		return *(*int64)(data)
	case FormatDouble:
		return *(*float64)(data)
	case FormatString, FormatOSDString:
		return goString(*(*unsafe.Pointer)(data))
	case FormatNode:
		return decodeNode((*mpvNode)(data))
	default:
		return nil
	}
}

// encodeValue converts v into native memory laid out as format and
// returns a pointer suitable for mpv_set_property and friends.
func encodeValue(a *Arena, format Format, v any) (unsafe.Pointer, error) {
	switch format {
	case FormatFlag:
		b, ok := v.(bool)
		if !ok {
			return nil, invalidArgument("encode", fmt.Sprintf("flag needs bool, got %T", v))
		}
		p := arenaNew[int32](a)
		if b {
			*p = 1
		}
		return unsafe.Pointer(p), nil
	case FormatInt64:
		i, ok := toInt64(v)
		if !ok {
			return nil, invalidArgument("encode", fmt.Sprintf("int64 needs an integer, got %T", v))
		}
		p := arenaNew[int64](a)
		*p = i
		return unsafe.Pointer(p), nil
	case FormatDouble:
		f, ok := toFloat64(v)
		if !ok {
			return nil, invalidArgument("encode", fmt.Sprintf("double needs a number, got %T", v))
		}
		p := arenaNew[float64](a)
		*p = f
		return unsafe.Pointer(p), nil
	case FormatString, FormatOSDString:
		s, ok := v.(string)
		if !ok {
			return nil, invalidArgument("encode", fmt.Sprintf("string needs string, got %T", v))
		}
		p := arenaNew[unsafe.Pointer](a)
		*p = a.CString(s)
		return unsafe.Pointer(p), nil
	case FormatNode:
		n := arenaNew[mpvNode](a)
		if err := encodeNode(a, v, n); err != nil {
			return nil, err
		}
		return unsafe.Pointer(n), nil
	default:
		return nil, invalidArgument("encode", "unsupported format "+format.String())
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

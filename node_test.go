package mpv

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"flag", true, true},
		{"int", 42, int64(42)},
		{"int64", int64(-7), int64(-7)},
		{"double", 2.5, 2.5},
		{"bytes", []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"empty bytes", []byte{}, []byte{}},
		{"strings", []string{"a", "b"}, []any{"a", "b"}},
		{"empty list", []any{}, []any{}},
		{"string map", map[string]string{"k": "v"}, map[string]any{"k": "v"}},
		{
			"nested",
			map[string]any{
				"tracks": []any{
					map[string]any{"id": int64(1), "type": "video", "default": true},
					map[string]any{"id": int64(2), "type": "audio", "lang": nil},
				},
				"duration": 12.5,
			},
			map[string]any{
				"tracks": []any{
					map[string]any{"id": int64(1), "type": "video", "default": true},
					map[string]any{"id": int64(2), "type": "audio", "lang": nil},
				},
				"duration": 12.5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := newTrackingAllocator()
			a := newArena(alloc)
			var n mpvNode

			require.NoError(t, encodeNode(a, tt.in, &n))
			assert.Equal(t, tt.want, decodeNode(&n))

			a.Release()
			assert.Zero(t, alloc.outstanding())
		})
	}
}

func TestNodeMapKeysSorted(t *testing.T) {
	a := newArena(newTrackingAllocator())
	defer a.Release()
	var n mpvNode

	require.NoError(t, encodeNode(a, map[string]any{"b": 1, "a": 2, "c": 3}, &n))

	list := (*mpvNodeList)(n.ptr())
	assert.Equal(t, []string{"a", "b", "c"}, goStrings(list.keys, int(list.num)))
}

func TestNodeUnsupportedType(t *testing.T) {
	a := newArena(newTrackingAllocator())
	defer a.Release()
	var n mpvNode

	err := encodeNode(a, struct{}{}, &n)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = encodeNode(a, []any{"ok", make(chan int)}, &n)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDecodeNodeUnknownFormat(t *testing.T) {
	assert.Nil(t, decodeNode(nil))
	assert.Nil(t, decodeNode(&mpvNode{format: 99}))
}

func TestEncodeValue(t *testing.T) {
	a := newArena(newTrackingAllocator())
	defer a.Release()

	tests := []struct {
		format Format
		in     any
		want   any
	}{
		{FormatFlag, true, true},
		{FormatFlag, false, false},
		{FormatInt64, 5, int64(5)},
		{FormatInt64, uint32(6), int64(6)},
		{FormatDouble, 1.25, 1.25},
		{FormatDouble, 3, 3.0},
		{FormatDouble, float32(0.5), 0.5},
		{FormatString, "text", "text"},
		{FormatOSDString, "osd", "osd"},
		{FormatNode, []any{int64(1), "two"}, []any{int64(1), "two"}},
	}
	for _, tt := range tests {
		p, err := encodeValue(a, tt.format, tt.in)
		require.NoError(t, err, "%s %v", tt.format, tt.in)
		assert.Equal(t, tt.want, decodeValue(tt.format, p), "%s %v", tt.format, tt.in)
	}
}

func TestEncodeValueMismatch(t *testing.T) {
	a := newArena(newTrackingAllocator())
	defer a.Release()

	for _, tt := range []struct {
		format Format
		in     any
	}{
		{FormatFlag, "yes"},
		{FormatInt64, 1.5},
		{FormatDouble, "1.5"},
		{FormatString, 7},
		{FormatNone, "x"},
		{FormatNodeArray, []any{}},
	} {
		_, err := encodeValue(a, tt.format, tt.in)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%s %T", tt.format, tt.in)
	}
}

func TestDecodeValueNil(t *testing.T) {
	assert.Nil(t, decodeValue(FormatDouble, nil))

	v := int64(3)
	assert.Nil(t, decodeValue(FormatNone, unsafe.Pointer(&v)))
}

package lai

import (
	"unsafe"
)

const end = "\x00"

// safeString null-terminates s for handing to the C side of the bindings.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != end[0] {
		return s + end
	}
	return s
}

// safeStrings returns a null-terminated copy of list.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

// trimNull strips a trailing terminator added by safeString.
func trimNull(s string) string {
	if len(s) > 0 && s[len(s)-1] == end[0] {
		return s[:len(s)-1]
	}
	return s
}

func containsString(list []string, s string) bool {
	s = trimNull(s)
	for _, v := range list {
		if trimNull(v) == s {
			return true
		}
	}
	return false
}

// sliceUint32 reinterprets SPIR-V bytes as words without copying.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// toBytes views lenInBytes bytes starting at ptr as a slice.
func toBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	return unsafe.Slice((*byte)(ptr), lenInBytes)
}

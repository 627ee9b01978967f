package trace

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt appends a signed integer in Klipper's VLQ format: seven bits
// per byte, most significant group first, continuation in bit 7.
func EncodeVLQInt(output *ScratchOutput, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		output.WriteByte(byte((v>>28)&0x7F) | 0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		output.WriteByte(byte((v>>21)&0x7F) | 0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		output.WriteByte(byte((v>>14)&0x7F) | 0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		output.WriteByte(byte((v>>7)&0x7F) | 0x80)
	}
	output.WriteByte(byte(v & 0x7F))
}

// EncodeVLQUint appends an unsigned integer; values above MaxInt32 round
// trip through the signed encoding
func EncodeVLQUint(output *ScratchOutput, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	// Sign extension for negative numbers
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F)
	}

	for n := 0; c&0x80 != 0; n++ {
		if n == 4 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}

package trace

// ScratchOutput is a fixed-size output buffer; writes past the end are
// dropped and flagged
type ScratchOutput struct {
	buf      [FrameMax]byte
	pos      int
	overflow bool
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

// WriteByte appends one byte
func (s *ScratchOutput) WriteByte(b byte) error {
	if s.pos >= len(s.buf) {
		s.overflow = true
		return nil
	}
	s.buf[s.pos] = b
	s.pos++
	return nil
}

// Write appends data
func (s *ScratchOutput) Write(data []byte) (int, error) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
	return n, nil
}

// Len returns the number of bytes written
func (s *ScratchOutput) Len() int {
	return s.pos
}

// Update modifies a byte at a specific position
func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

// Overflowed reports whether a write was truncated since the last Reset
func (s *ScratchOutput) Overflowed() bool {
	return s.overflow
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

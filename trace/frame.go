package trace

import (
	"bytes"
	"errors"
	"io"
)

// Frame layout, after Klipper's message block:
//
//	<len> <seq> <payload...> <crc hi> <crc lo> <sync>
//
// len counts the whole frame. The payload is a run of events, each five VLQ
// fields: type, handle, clock, value1, value2.
const (
	FrameMax     = 64 // Maximum frame size
	FrameMin     = 5  // Header + trailer
	FrameHeader  = 2
	FrameTrailer = 3

	FramePositionLen = 0
	FramePositionSeq = 1

	FrameSync    = 0x7E
	FrameDest    = 0x10
	FrameSeqMask = 0x0F
)

var ErrBadFrame = errors.New("trace: bad frame")

// Encoder packs events into frames and writes each frame to w when it is
// full or on Flush
type Encoder struct {
	w      io.Writer
	seq    uint8
	frame  ScratchOutput
	event  ScratchOutput
	events int
}

// NewEncoder creates an encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode adds one event to the current frame, flushing first if it would
// not fit
func (e *Encoder) Encode(evt Event) error {
	e.event.Reset()
	EncodeVLQUint(&e.event, uint32(evt.Type))
	EncodeVLQUint(&e.event, uint32(evt.Handle))
	EncodeVLQUint(&e.event, evt.Clock)
	EncodeVLQUint(&e.event, evt.Value1)
	EncodeVLQUint(&e.event, evt.Value2)

	if e.events > 0 && e.frame.Len()+e.event.Len()+FrameTrailer > FrameMax {
		if err := e.Flush(); err != nil {
			return err
		}
	}
	if e.events == 0 {
		e.frame.Reset()
		e.frame.Write([]byte{0, 0}) // length and sequence placeholders
	}
	e.frame.Write(e.event.Result())
	e.events++
	return nil
}

// Flush writes the pending frame, if any
func (e *Encoder) Flush() error {
	if e.events == 0 {
		return nil
	}

	msgLen := e.frame.Len() + FrameTrailer
	e.frame.Update(FramePositionLen, uint8(msgLen))
	e.frame.Update(FramePositionSeq, FrameDest|(e.seq&FrameSeqMask))

	crc := CRC16(e.frame.Result())
	e.frame.Write([]byte{uint8(crc >> 8), uint8(crc & 0xFF), FrameSync})
	if e.frame.Overflowed() {
		e.events = 0
		e.frame.Reset()
		return ErrBadFrame
	}

	_, err := e.w.Write(e.frame.Result())
	e.seq++
	e.events = 0
	e.frame.Reset()
	return err
}

// WriteEvents encodes events and flushes the last frame
func (e *Encoder) WriteEvents(events []Event) error {
	for _, evt := range events {
		if err := e.Encode(evt); err != nil {
			return err
		}
	}
	return e.Flush()
}

// Decoder extracts events from a byte stream, discarding corrupt frames
// and resynchronising on the sync byte
type Decoder struct {
	buf    []byte
	frames uint32
	errors uint32
}

// NewDecoder creates a decoder
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 2*FrameMax)}
}

// Feed appends received bytes
func (d *Decoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Next returns the events of the next complete frame. ok is false when more
// input is needed.
func (d *Decoder) Next() (events []Event, ok bool) {
	for len(d.buf) >= FrameMin {
		msgLen := int(d.buf[FramePositionLen])
		if msgLen < FrameMin || msgLen > FrameMax {
			d.resync()
			continue
		}
		if len(d.buf) < msgLen {
			return nil, false
		}

		frame := d.buf[:msgLen]
		if frame[msgLen-1] != FrameSync || frame[FramePositionSeq]&^FrameSeqMask != FrameDest {
			d.resync()
			continue
		}
		crc := CRC16(frame[:msgLen-FrameTrailer])
		if frame[msgLen-3] != uint8(crc>>8) || frame[msgLen-2] != uint8(crc&0xFF) {
			d.resync()
			continue
		}

		events, err := decodePayload(frame[FrameHeader : msgLen-FrameTrailer])
		d.consume(msgLen)
		if err != nil {
			d.errors++
			continue
		}
		d.frames++
		return events, true
	}
	return nil, false
}

// Frames returns the number of frames decoded
func (d *Decoder) Frames() uint32 {
	return d.frames
}

// Errors returns the number of corrupt frames skipped
func (d *Decoder) Errors() uint32 {
	return d.errors
}

func (d *Decoder) resync() {
	d.errors++
	i := bytes.IndexByte(d.buf, FrameSync)
	if i < 0 {
		d.buf = d.buf[:0]
		return
	}
	d.consume(i + 1)
}

func (d *Decoder) consume(n int) {
	remaining := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:remaining]
}

func decodePayload(payload []byte) ([]Event, error) {
	var events []Event
	for len(payload) > 0 {
		var fields [5]uint32
		for i := range fields {
			v, err := DecodeVLQUint(&payload)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		if fields[1] > 0xFF || fields[0] > 0xFF {
			return nil, ErrBadFrame
		}
		events = append(events, Event{
			Type:   EventType(fields[0]),
			Handle: uint8(fields[1]),
			Clock:  fields[2],
			Value1: fields[3],
			Value2: fields[4],
		})
	}
	return events, nil
}

// ReadEvents decodes frames from r until it returns an error, calling fn
// for every event. io.EOF ends the stream cleanly.
func ReadEvents(r io.Reader, fn func(Event)) error {
	d := NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
			for {
				events, ok := d.Next()
				if !ok {
					break
				}
				for _, evt := range events {
					fn(evt)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

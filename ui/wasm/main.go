//go:build js && wasm

package main

import (
	"encoding/hex"
	"syscall/js"

	"safetimer/trace"
)

// Stream decoder for frames fed in pieces from WebSerial
var decoder = trace.NewDecoder()

func main() {
	js.Global().Set("safetimerWasm", js.ValueOf(map[string]interface{}{
		"encodeVLQ":    js.FuncOf(encodeVLQWrapper),
		"decodeVLQ":    js.FuncOf(decodeVLQWrapper),
		"crc16":        js.FuncOf(crc16Wrapper),
		"decodeFrames": js.FuncOf(decodeFramesWrapper),
		"feed":         js.FuncOf(feedWrapper),
		"reset":        js.FuncOf(resetWrapper),
	}))

	// Keep the program running
	select {}
}

// encodeVLQWrapper encodes an unsigned integer to VLQ
// Args: value (uint32)
// Returns: hex string
func encodeVLQWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: missing value argument")
	}
	output := trace.NewScratchOutput()
	trace.EncodeVLQUint(output, uint32(args[0].Int()))
	return js.ValueOf(hex.EncodeToString(output.Result()))
}

// decodeVLQWrapper decodes one VLQ from a hex string
// Returns: {value, consumed, error}
func decodeVLQWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeResult(0, 0, "missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return makeResult(0, 0, "invalid hex string: "+err.Error())
	}

	rest := data
	value, err := trace.DecodeVLQUint(&rest)
	if err != nil {
		return makeResult(0, 0, err.Error())
	}
	return makeResult(int(value), len(data)-len(rest), "")
}

// crc16Wrapper calculates the frame CRC of a hex string
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(int(trace.CRC16(data)))
}

// decodeFramesWrapper decodes a complete capture
// Args: hexString
// Returns: {events: [...], frames, corrupt, error}
func decodeFramesWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeFramesResult(nil, nil, "missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return makeFramesResult(nil, nil, "invalid hex string: "+err.Error())
	}
	d := trace.NewDecoder()
	d.Feed(data)
	return makeFramesResult(drain(d), d, "")
}

// feedWrapper appends bytes to the stream decoder and returns the events of
// every frame completed so far
func feedWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeFramesResult(nil, decoder, "missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return makeFramesResult(nil, decoder, "invalid hex string: "+err.Error())
	}
	decoder.Feed(data)
	return makeFramesResult(drain(decoder), decoder, "")
}

func resetWrapper(this js.Value, args []js.Value) interface{} {
	decoder = trace.NewDecoder()
	return js.Undefined()
}

func drain(d *trace.Decoder) []trace.Event {
	var out []trace.Event
	for {
		events, ok := d.Next()
		if !ok {
			return out
		}
		out = append(out, events...)
	}
}

func makeResult(value int, consumed int, errMsg string) js.Value {
	result := make(map[string]interface{})
	result["value"] = value
	result["consumed"] = consumed
	if errMsg != "" {
		result["error"] = errMsg
	}
	return js.ValueOf(result)
}

func makeFramesResult(events []trace.Event, d *trace.Decoder, errMsg string) js.Value {
	jsEvents := make([]interface{}, len(events))
	for i, e := range events {
		jsEvents[i] = map[string]interface{}{
			"type":   int(e.Type),
			"name":   e.Type.String(),
			"handle": int(e.Handle),
			"clock":  int(e.Clock),
			"v1":     int(e.Value1),
			"v2":     int(e.Value2),
		}
	}

	result := make(map[string]interface{})
	result["events"] = jsEvents
	if d != nil {
		result["frames"] = int(d.Frames())
		result["corrupt"] = int(d.Errors())
	}
	if errMsg != "" {
		result["error"] = errMsg
	}
	return js.ValueOf(result)
}

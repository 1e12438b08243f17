package tts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavDuration reads the playback length of a PCM RIFF/WAVE payload.
func wavDuration(data []byte) (float64, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE payload")
	}
	var byteRate uint32
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, errors.New("data chunk before fmt chunk")
			}
			// Streaming writers leave the size unset; fall back to what arrived.
			if size <= 0 || body+size > len(data) {
				size = len(data) - body
			}
			return float64(size) / float64(byteRate), nil
		}
		offset = body + size + size%2
	}
	return 0, fmt.Errorf("no data chunk in %d bytes", len(data))
}

package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteWAV writes a silent 16-bit mono PCM WAV of the requested length.
func WriteWAV(t testing.TB, path string, seconds float64, sampleRate int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, WAVBytes(seconds, sampleRate), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WAVBytes returns a silent 16-bit mono PCM WAV of the requested length.
func WAVBytes(seconds float64, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	samples := int(seconds * float64(sampleRate))
	if samples < 0 {
		samples = 0
	}
	dataSize := samples * 2
	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}

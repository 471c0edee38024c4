package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV indicates a blob without a decodable RIFF/WAVE structure.
var ErrNotWAV = errors.New("not a PCM WAV payload")

// EncodeWAV wraps raw little-endian s16 PCM bytes in a minimal WAV container.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header, pcm...)
}

// DecodeWAV extracts s16 PCM and format metadata from a WAV blob. Chunks
// other than fmt/data are skipped; non-PCM or non-16-bit formats fail.
func DecodeWAV(blob []byte) (pcm []byte, sampleRate int, channels int, err error) {
	if len(blob) < 12 || string(blob[0:4]) != "RIFF" || string(blob[8:12]) != "WAVE" {
		return nil, 0, 0, ErrNotWAV
	}

	var haveFormat bool
	offset := 12
	for offset+8 <= len(blob) {
		chunkID := string(blob[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(blob[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(blob) {
			chunkSize = len(blob) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format := binary.LittleEndian.Uint16(blob[body : body+2])
			bits := binary.LittleEndian.Uint16(blob[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, 0, 0, fmt.Errorf("%w: format=%d bits=%d", ErrNotWAV, format, bits)
			}
			channels = int(binary.LittleEndian.Uint16(blob[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(blob[body+4 : body+8]))
			haveFormat = true
		case "data":
			pcm = blob[body : body+chunkSize]
		}

		// Chunks are word aligned.
		offset = body + chunkSize + chunkSize%2
	}

	if !haveFormat || pcm == nil {
		return nil, 0, 0, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: channels=%d rate=%d", ErrNotWAV, channels, sampleRate)
	}
	return pcm, sampleRate, channels, nil
}

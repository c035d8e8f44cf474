package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	SampleRate     = 16000
	BytesPerSample = 2
	NumChannels    = 1
	// TranscribeThreshold is two seconds of mono PCM16 at SampleRate.
	TranscribeThreshold = SampleRate * BytesPerSample * 2

	wavHeaderSize = 44
	pcmFormatTag  = 1
)

var ErrEmptyAudio = errors.New("cannot encode empty audio")

// WAVHeader is the canonical 44-byte RIFF/WAVE header, written little-endian field by field.
type WAVHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

func NewWAVHeader(dataSize int) WAVHeader {
	blockAlign := uint16(NumChannels * BytesPerSample)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize - 8 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormatTag,
		NumChannels:   NumChannels,
		SampleRate:    SampleRate,
		ByteRate:      SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: BytesPerSample * 8,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
}

// EncodeWAV wraps raw mono PCM16 bytes in a WAV container.
func EncodeWAV(pcm []byte) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, NewWAVHeader(len(pcm))); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

func ReadWAVHeader(data []byte) (WAVHeader, error) {
	var h WAVHeader
	if len(data) < wavHeaderSize {
		return h, fmt.Errorf("wav data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:wavHeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to read wav header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return h, fmt.Errorf("invalid wav file: missing RIFF/WAVE header")
	}
	return h, nil
}

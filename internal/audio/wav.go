package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// WAVHeaderSize is the size of the canonical RIFF/WAVE header written by EncodeWAV
	WAVHeaderSize = 44

	// WAVMimeType is the content type of encoded clips and chunks
	WAVMimeType = "audio/wav"

	formatPCM        = 1
	formatExtensible = 0xFFFE
	bitsPerSample    = 16
	bytesPerSample   = bitsPerSample / 8
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// WAVInfo describes a WAV file without its samples
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// EncodeWAV encodes a sample buffer as a 16-bit linear PCM WAVE file.
// Channels are interleaved frame by frame.
func EncodeWAV(buf *SampleBuffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("encode WAV: %w", err)
	}

	numChannels := buf.NumChannels()
	numSamples := buf.Len()
	blockAlign := numChannels * bytesPerSample

	dataSize := uint64(numSamples) * uint64(blockAlign)
	if numChannels > math.MaxUint16 || dataSize > math.MaxUint32-36 {
		return nil, fmt.Errorf("encode WAV: %w: %d channels x %d samples does not fit a RIFF container",
			ErrInvalidBuffer, numChannels, numSamples)
	}

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(numChannels),
		SampleRate:    uint32(buf.SampleRate),
		ByteRate:      uint32(buf.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}

	out := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+int(dataSize)))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	pcm := make([]byte, dataSize)
	pos := 0
	for i := 0; i < numSamples; i++ {
		for ch := 0; ch < numChannels; ch++ {
			binary.LittleEndian.PutUint16(pcm[pos:], uint16(quantize(buf.Channels[ch][i])))
			pos += bytesPerSample
		}
	}
	out.Write(pcm)

	return out.Bytes(), nil
}

// quantize clamps s to [-1, 1] and scales it asymmetrically to int16,
// truncating toward zero.
func quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = max(-1, min(1, v))

	var scaled float64
	if v < 0 {
		scaled = v * 32768
	} else {
		scaled = v * 32767
	}

	return int16(scaled)
}

// dequantize maps v back to [-1, 1]. The result is the float32 nearest
// v/scale that quantize truncates back to v, so decoded audio re-encodes to
// the same bytes.
func dequantize(v int16) float32 {
	var f float32
	if v < 0 {
		f = float32(float64(v) / 32768)
	} else {
		f = float32(float64(v) / 32767)
	}

	away := float32(math.Inf(1))
	if v < 0 {
		away = float32(math.Inf(-1))
	}
	for quantize(f) != v {
		f = math.Nextafter32(f, away)
	}
	return f
}

// wavLayout is the result of walking the RIFF chunk list
type wavLayout struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	blockAlign    uint16
	bitsPerSample uint16
	data          []byte
}

// parseWAV walks RIFF chunks and locates "fmt " and "data". Unknown chunks
// (LIST, fact, ...) are skipped.
func parseWAV(data []byte) (*wavLayout, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrInvalidWAV, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	}

	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	}

	var (
		layout   wavLayout
		haveFmt  bool
		haveData bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) || end < body {
			// Streaming writers leave the data size unset; take what is there.
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrInvalidWAV, end-body)
			}
			f := data[body:end]
			layout.audioFormat = binary.LittleEndian.Uint16(f[0:2])
			layout.numChannels = binary.LittleEndian.Uint16(f[2:4])
			layout.sampleRate = binary.LittleEndian.Uint32(f[4:8])
			layout.blockAlign = binary.LittleEndian.Uint16(f[12:14])
			layout.bitsPerSample = binary.LittleEndian.Uint16(f[14:16])
			if layout.audioFormat == formatExtensible && len(f) >= 26 {
				layout.audioFormat = binary.LittleEndian.Uint16(f[24:26])
			}
			haveFmt = true
		case "data":
			layout.data = data[body:end]
			haveData = true
		}

		// Chunks are word aligned
		pos = end + (end-body)%2
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	}

	if !haveData {
		return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
	}

	return &layout, nil
}

func (l *wavLayout) validatePCM16() error {
	if l.audioFormat != formatPCM {
		return fmt.Errorf("%w: unsupported audio format %d (only PCM is supported)", ErrInvalidWAV, l.audioFormat)
	}

	if l.bitsPerSample != bitsPerSample {
		return fmt.Errorf("%w: unsupported bit depth %d (only 16-bit is supported)", ErrInvalidWAV, l.bitsPerSample)
	}

	if l.numChannels == 0 {
		return fmt.Errorf("%w: channel count is 0", ErrInvalidWAV)
	}

	if l.sampleRate == 0 {
		return fmt.Errorf("%w: sample rate is 0", ErrInvalidWAV)
	}

	if int(l.blockAlign) != int(l.numChannels)*bytesPerSample {
		return fmt.Errorf("%w: block align %d does not match %d channels", ErrInvalidWAV, l.blockAlign, l.numChannels)
	}

	return nil
}

// DecodeWAV decodes a 16-bit PCM WAVE file into a sample buffer.
// A trailing partial frame is ignored.
func DecodeWAV(data []byte) (*SampleBuffer, error) {
	layout, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	if err := layout.validatePCM16(); err != nil {
		return nil, err
	}

	numChannels := int(layout.numChannels)
	frameSize := int(layout.blockAlign)
	numFrames := len(layout.data) / frameSize

	buf := &SampleBuffer{
		SampleRate: int(layout.sampleRate),
		Channels:   make([][]float32, numChannels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, numFrames)
	}

	pos := 0
	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			v := int16(binary.LittleEndian.Uint16(layout.data[pos:]))
			buf.Channels[ch][i] = dequantize(v)
			pos += bytesPerSample
		}
	}

	return buf, nil
}

// ValidateWAV validates a WAV file format without decoding the audio data
func ValidateWAV(data []byte) error {
	layout, err := parseWAV(data)
	if err != nil {
		return err
	}

	return layout.validatePCM16()
}

// GetWAVInfo extracts metadata from a WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	layout, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	if layout.sampleRate == 0 || layout.blockAlign == 0 {
		return nil, fmt.Errorf("%w: sample rate %d, block align %d", ErrInvalidWAV, layout.sampleRate, layout.blockAlign)
	}

	numSamples := uint32(len(layout.data)) / uint32(layout.blockAlign)

	return &WAVInfo{
		SampleRate:    layout.sampleRate,
		Channels:      layout.numChannels,
		BitsPerSample: layout.bitsPerSample,
		Duration:      float64(numSamples) / float64(layout.sampleRate),
		DataSize:      uint32(len(layout.data)),
		NumSamples:    numSamples,
	}, nil
}

// Package server exposes playback control over HTTP and streams sample
// chunks to DSP consumers over a Unix socket.
package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"timemachine/internal/catalog"
	"timemachine/internal/playback"
)

// LoadRequest is the request body for the load endpoint.
type LoadRequest struct {
	RecordingID string `json:"recording_id" binding:"required"`
}

// SeekRequest is the request body for the seek endpoint.
type SeekRequest struct {
	Position *float64 `json:"position" binding:"required"`
}

// PlaybackResponse is returned by every transport endpoint.
type PlaybackResponse struct {
	Status  string            `json:"status"`
	Session *playback.Session `json:"session,omitempty"`
	Message string            `json:"message,omitempty"`
}

// RecordingsResponse is the response for the recordings endpoint.
type RecordingsResponse struct {
	Count      int                 `json:"count"`
	Recordings []catalog.Recording `json:"recordings"`
	Error      string              `json:"error,omitempty"`
}

// Chunk frames on the socket are a 4-byte big-endian length followed by a
// fixed header and the raw samples. The length covers header and samples.
//
//	sample rate    uint32
//	center freq    uint64 (Hz)
//	timestamp      int64  (unix ms)
//	position       float64 bits
const (
	frameLengthSize = 4
	chunkHeaderSize = 4 + 8 + 8 + 8
)

// maxFrameSize bounds what ReadChunkFrame will allocate for one frame.
const maxFrameSize = chunkHeaderSize + 4<<20

var errShortFrame = errors.New("frame too short")

// ChunkHeader is the decoded fixed part of a chunk frame.
type ChunkHeader struct {
	SampleRate      uint32
	CenterFrequency uint64
	Timestamp       time.Time
	Position        float64
}

// EncodeChunkFrame serialises c into a length-prefixed frame.
func EncodeChunkFrame(c playback.Chunk) []byte {
	payload := chunkHeaderSize + len(c.Samples)
	frame := make([]byte, frameLengthSize+payload)

	binary.BigEndian.PutUint32(frame[0:4], uint32(payload))
	h := frame[frameLengthSize:]
	binary.BigEndian.PutUint32(h[0:4], uint32(c.SampleRate))
	binary.BigEndian.PutUint64(h[4:12], uint64(c.CenterFrequency))
	binary.BigEndian.PutUint64(h[12:20], uint64(c.Timestamp.UnixMilli()))
	binary.BigEndian.PutUint64(h[20:28], math.Float64bits(c.Position))
	copy(h[chunkHeaderSize:], c.Samples)

	return frame
}

// DecodeChunkPayload parses a frame payload (the bytes after the length prefix).
func DecodeChunkPayload(payload []byte) (ChunkHeader, []byte, error) {
	if len(payload) < chunkHeaderSize {
		return ChunkHeader{}, nil, errShortFrame
	}
	h := ChunkHeader{
		SampleRate:      binary.BigEndian.Uint32(payload[0:4]),
		CenterFrequency: binary.BigEndian.Uint64(payload[4:12]),
		Timestamp:       time.UnixMilli(int64(binary.BigEndian.Uint64(payload[12:20]))),
		Position:        math.Float64frombits(binary.BigEndian.Uint64(payload[20:28])),
	}
	return h, payload[chunkHeaderSize:], nil
}

// ReadChunkFrame reads one length-prefixed frame from r and decodes it.
func ReadChunkFrame(r io.Reader) (ChunkHeader, []byte, error) {
	var lenBuf [frameLengthSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return ChunkHeader{}, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return ChunkHeader{}, nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return ChunkHeader{}, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return DecodeChunkPayload(payload)
}

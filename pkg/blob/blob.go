// Package blob stores raw audio recordings outside the state
// database. Each training example's recording is written once under
// its example id and read back for replay, re-segmentation, and
// pattern re-discovery after restarts.
//
// Two backends are provided: local disk and S3-compatible object
// stores.
package blob

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/haivivi/vocab/pkg/audio/pcm"
)

// Store is a minimal byte-oriented blob store keyed by recording id.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes a blob, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads a blob. Missing keys return an error wrapping
	// ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a blob. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// ErrNotExist is wrapped by Get for missing keys.
var ErrNotExist = errors.New("blob: not exist")

// Recording container format: magic, sample rate, then little-endian
// 16-bit samples.
var recordingMagic = [4]byte{'v', 'p', 'c', 'm'}

// EncodeRecording serializes a buffer into the recording container.
func EncodeRecording(buf *pcm.Buffer) ([]byte, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, errors.New("blob: empty recording")
	}
	out := make([]byte, 0, 8+2*buf.Len())
	out = append(out, recordingMagic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(buf.Rate))
	return append(out, buf.Int16Bytes()...), nil
}

// DecodeRecording parses the recording container.
func DecodeRecording(data []byte) (*pcm.Buffer, error) {
	if len(data) < 8 || [4]byte(data[:4]) != recordingMagic {
		return nil, errors.New("blob: not a recording")
	}
	rate := int(binary.LittleEndian.Uint32(data[4:8]))
	if rate <= 0 {
		return nil, fmt.Errorf("blob: bad sample rate %d", rate)
	}
	return pcm.FromInt16(data[8:], rate), nil
}

// SaveRecording encodes and stores a recording under the given key.
func SaveRecording(ctx context.Context, s Store, key string, buf *pcm.Buffer) error {
	data, err := EncodeRecording(buf)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, data)
}

// LoadRecording fetches and decodes a recording.
func LoadRecording(ctx context.Context, s Store, key string) (*pcm.Buffer, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeRecording(data)
}

// readAll drains a reader and closes it, preserving the first error.
func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

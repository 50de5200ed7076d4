// Package pcm provides the in-memory audio buffer used throughout the
// vocalization pipeline: mono float32 samples normalized to [-1, 1]
// plus a sample rate.
//
// Buffers are cheap value wrappers around a sample slice. Slicing
// operations share the underlying array; callers that mutate samples
// should Clone first.
package pcm

import (
	"math"
	"time"
)

// DefaultRate is the sample rate the embedding front-end expects.
const DefaultRate = 16000

// Buffer is a mono audio buffer.
type Buffer struct {
	// Samples are normalized to [-1, 1].
	Samples []float32

	// Rate is the sample rate in Hz.
	Rate int
}

// New wraps samples at the given rate. A zero rate defaults to 16 kHz.
func New(samples []float32, rate int) *Buffer {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Buffer{Samples: samples, Rate: rate}
}

// FromInt16 converts PCM16 signed little-endian bytes to a Buffer.
// Odd trailing bytes are dropped.
func FromInt16(data []byte, rate int) *Buffer {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return New(samples, rate)
}

// Int16Bytes converts the buffer back to PCM16 signed little-endian bytes,
// clipping samples outside [-1, 1].
func (b *Buffer) Int16Bytes() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		sv := int16(v)
		out[i*2] = byte(sv)
		out[i*2+1] = byte(sv >> 8)
	}
	return out
}

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.Samples) }

// Duration returns the buffer's play time.
func (b *Buffer) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.Rate) * float64(time.Second))
}

// Slice returns the sub-buffer covering [start, end), clamped to the
// buffer bounds. The returned buffer shares the underlying samples.
// An inverted or out-of-range span yields an empty buffer.
func (b *Buffer) Slice(start, end time.Duration) *Buffer {
	i := int(start.Seconds() * float64(b.Rate))
	j := int(end.Seconds() * float64(b.Rate))
	if i < 0 {
		i = 0
	}
	if j > len(b.Samples) {
		j = len(b.Samples)
	}
	if i >= j {
		return New(nil, b.Rate)
	}
	return New(b.Samples[i:j], b.Rate)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	cp := make([]float32, len(b.Samples))
	copy(cp, b.Samples)
	return New(cp, b.Rate)
}

// RMS returns the root-mean-square amplitude in [0, 1].
func (b *Buffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// silenceFloorDB is the dB value reported for digital silence.
const silenceFloorDB = -100.0

// RMSdB returns the RMS amplitude in decibels relative to full scale,
// floored at -100 dB for silence.
func (b *Buffer) RMSdB() float64 {
	rms := b.RMS()
	if rms <= 0 {
		return silenceFloorDB
	}
	db := 20 * math.Log10(rms)
	if db < silenceFloorDB {
		return silenceFloorDB
	}
	return db
}

// Fit returns a buffer with exactly n samples. Shorter buffers are
// tiled (content repeated) and longer buffers truncated. This is the
// single short-window policy applied before embedding extraction.
// An empty source yields n zero samples.
func (b *Buffer) Fit(n int) *Buffer {
	if n <= 0 {
		return New(nil, b.Rate)
	}
	if len(b.Samples) == n {
		return b
	}
	out := make([]float32, n)
	if len(b.Samples) == 0 {
		return New(out, b.Rate)
	}
	if len(b.Samples) > n {
		copy(out, b.Samples[:n])
		return New(out, b.Rate)
	}
	for i := 0; i < n; i += len(b.Samples) {
		copy(out[i:], b.Samples)
	}
	return New(out, b.Rate)
}

// Package vad implements streaming voice activity detection over PCM
// audio using frame energy and spectral flux.
//
// # Algorithm
//
// Audio is framed (20 ms window, 10 ms hop by default). Each frame
// yields a windowed RMS energy in dB and a spectral flux value (the
// sum of positive-only magnitude-spectrum increases versus the
// previous frame). A dynamic flux threshold tracks the median of
// recent flux values times a fixed factor, so onset sensitivity
// adapts to the ambient noise floor.
//
// A four-state machine turns frame decisions into voiced spans:
//
//	silence → speechStart → speech → hangover → silence
//
// Entry into speech requires a minimum run of active frames (debounce
// of false starts); leaving speech tolerates up to the configured
// hangover before the segment closes, so trailing sound is not
// truncated. Segments shorter than the minimum duration are dropped.
//
// Frames shorter than the configured frame size are treated as
// silence, never as an error.
package vad

import (
	"math"
	"sort"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/audio/spectral"
)

// Segment is a voiced span detected in a buffer.
type Segment struct {
	// Start and End are offsets from the beginning of the buffer.
	Start time.Duration
	End   time.Duration

	// Confidence in [0, 1] reflects how strongly the span exceeded the
	// energy floor and how densely its frames were active.
	Confidence float32
}

// Duration returns the span length.
func (s Segment) Duration() time.Duration { return s.End - s.Start }

// Config controls detection behavior. Zero values take defaults.
type Config struct {
	// FrameSize is the analysis window length. Default 20 ms.
	FrameSize time.Duration

	// HopSize is the analysis hop. Default 10 ms.
	HopSize time.Duration

	// FFTSize is the transform size for spectral flux. Default 512.
	FFTSize int

	// EnergyFloorDB is the RMS energy in dB below which a frame can
	// never be active. Default -42.
	EnergyFloorDB float64

	// FluxFactor scales the recent median flux to form the dynamic
	// onset threshold. Default 1.8.
	FluxFactor float64

	// FluxHistory is how many recent frames feed the median. Default 32.
	FluxHistory int

	// SpeechStartFrames is the number of consecutive active frames
	// required to confirm speech. Default 3.
	SpeechStartFrames int

	// HangoverFrames is the maximum inactive frames tolerated inside
	// speech before the segment closes. Default 25 (~250 ms).
	HangoverFrames int

	// MinSegment is the minimum duration for a reported segment.
	// Default 150 ms.
	MinSegment time.Duration

	// MinConfidence is the minimum confidence for a reported segment.
	// Default 0.1.
	MinConfidence float32
}

func (c *Config) defaults() {
	if c.FrameSize == 0 {
		c.FrameSize = 20 * time.Millisecond
	}
	if c.HopSize == 0 {
		c.HopSize = 10 * time.Millisecond
	}
	if c.FFTSize == 0 {
		c.FFTSize = 512
	}
	if c.EnergyFloorDB == 0 {
		c.EnergyFloorDB = -42
	}
	if c.FluxFactor == 0 {
		c.FluxFactor = 1.8
	}
	if c.FluxHistory == 0 {
		c.FluxHistory = 32
	}
	if c.SpeechStartFrames == 0 {
		c.SpeechStartFrames = 3
	}
	if c.HangoverFrames == 0 {
		c.HangoverFrames = 25
	}
	if c.MinSegment == 0 {
		c.MinSegment = 150 * time.Millisecond
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.1
	}
}

type state int

const (
	stateSilence state = iota
	stateSpeechStart
	stateSpeech
	stateHangover
)

// Detector runs the VAD state machine. It is stateless across Detect
// calls: each call analyzes one complete buffer.
type Detector struct {
	cfg Config

	// Diagnostics from the most recent frame.
	lastEnergyDB float64
	lastFlux     float64
}

// New creates a Detector.
func New(cfg Config) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg}
}

// LastEnergyDB returns the energy of the most recently analyzed frame.
func (d *Detector) LastEnergyDB() float64 { return d.lastEnergyDB }

// LastFlux returns the spectral flux of the most recently analyzed frame.
func (d *Detector) LastFlux() float64 { return d.lastFlux }

// Detect returns the voiced segments of buf in order. An empty or
// too-short buffer yields no segments.
func (d *Detector) Detect(buf *pcm.Buffer) []Segment {
	cfg := d.cfg
	frameLen := int(cfg.FrameSize.Seconds() * float64(buf.Rate))
	hopLen := int(cfg.HopSize.Seconds() * float64(buf.Rate))
	if frameLen <= 0 || hopLen <= 0 || buf.Len() == 0 {
		return nil
	}

	window := spectral.HammingWindow(frameLen)

	var (
		st         = stateSilence
		prevMag    []float64
		fluxHist   []float64
		startRun   int
		hangRun    int
		segStart   time.Duration
		lastActive time.Duration
		segEnergy  float64
		segActive  int
		segFrames  int
		out        []Segment
	)

	closeSegment := func(end time.Duration) {
		dur := end - segStart
		if dur < cfg.MinSegment || segFrames == 0 {
			return
		}
		// Confidence blends mean energy margin over the floor with the
		// fraction of active frames in the span.
		meanDB := segEnergy / float64(segFrames)
		margin := (meanDB - cfg.EnergyFloorDB) / 30.0
		if margin < 0 {
			margin = 0
		} else if margin > 1 {
			margin = 1
		}
		density := float64(segActive) / float64(segFrames)
		conf := float32(0.5*margin + 0.5*density)
		if conf < cfg.MinConfidence {
			return
		}
		out = append(out, Segment{Start: segStart, End: end, Confidence: conf})
	}

	for off := 0; off+hopLen <= buf.Len(); off += hopLen {
		frameStart := time.Duration(float64(off) / float64(buf.Rate) * float64(time.Second))
		frameEnd := frameStart + cfg.FrameSize

		var frame []float32
		if off+frameLen <= buf.Len() {
			frame = buf.Samples[off : off+frameLen]
		}

		active := false
		if frame != nil {
			energyDB := windowedRMSdB(frame, window)
			mag := spectral.Magnitudes(frame, window, cfg.FFTSize)
			flux := spectral.Flux(mag, prevMag)
			prevMag = mag

			d.lastEnergyDB = energyDB
			d.lastFlux = flux

			fluxThresh := median(fluxHist) * cfg.FluxFactor
			fluxHist = append(fluxHist, flux)
			if len(fluxHist) > cfg.FluxHistory {
				fluxHist = fluxHist[1:]
			}

			if energyDB >= cfg.EnergyFloorDB {
				// Inside speech, energy alone keeps the frame active;
				// entering speech also wants a flux onset once enough
				// history exists to trust the threshold.
				if st == stateSpeech || st == stateHangover {
					active = true
				} else if len(fluxHist) < 4 || fluxThresh == 0 || flux >= fluxThresh {
					active = true
				}
			}

			if st == stateSpeech || st == stateHangover || st == stateSpeechStart {
				segEnergy += energyDB
				segFrames++
				if active {
					segActive++
				}
			}
		}
		// frame == nil: short trailing frame, treated as silence.

		switch st {
		case stateSilence:
			if active {
				st = stateSpeechStart
				startRun = 1
				segStart = frameStart
				segEnergy = 0
				segActive = 0
				segFrames = 0
			}
		case stateSpeechStart:
			if active {
				startRun++
				if startRun >= cfg.SpeechStartFrames {
					st = stateSpeech
				}
			} else {
				st = stateSilence
			}
		case stateSpeech:
			if active {
				lastActive = frameEnd
			} else {
				st = stateHangover
				hangRun = 1
			}
		case stateHangover:
			if active {
				st = stateSpeech
				lastActive = frameEnd
			} else {
				hangRun++
				if hangRun >= cfg.HangoverFrames {
					closeSegment(lastActive)
					st = stateSilence
				}
			}
		}
		if st == stateSpeech {
			lastActive = frameEnd
		}
	}

	// Flush an open segment at buffer end.
	if st == stateSpeech || st == stateHangover {
		closeSegment(lastActive)
	}

	return out
}

// windowedRMSdB computes the RMS energy of a windowed frame in dB,
// floored at -100.
func windowedRMSdB(frame []float32, window []float64) float64 {
	var sum float64
	for i, s := range frame {
		v := float64(s) * window[i]
		sum += v * v
	}
	meanSq := sum / float64(len(frame))
	if meanSq <= 0 {
		return -100
	}
	db := 10 * math.Log10(meanSq) // 20·log10(sqrt(x)) == 10·log10(x)
	if db < -100 {
		return -100
	}
	return db
}

// median returns the median of xs, 0 for empty input.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return (cp[mid-1] + cp[mid]) / 2
}

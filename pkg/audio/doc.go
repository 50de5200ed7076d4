// Package audio is the umbrella for the signal front end:
//
//   - pcm: sample buffers, rate conversion, level measurement
//   - spectral: FFT, windowing, magnitude spectra, spectral flux
//   - fbank: log mel filterbank features and stats pooling
//   - vad: streaming voice activity detection
//
// The front end feeds the embedding extractor; everything above it
// works on vectors, not samples.
package audio

// Package wavio converts between 16-bit PCM WAV files and float samples.
package wavio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is what speech recognition expects.
const SampleRate = 16000

// Write stores samples in [-1, 1] as 16-bit mono PCM.
func Write(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           make([]int, len(samples)),
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		s = max(-1, min(1, s))
		buf.Data[i] = int(s * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// Read decodes a mono 16-bit PCM WAV file at SampleRate into floats in
// [-1, 1).
func Read(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if buf.Format != nil && (buf.Format.NumChannels != 1 || buf.Format.SampleRate != SampleRate) {
		return nil, fmt.Errorf("expected mono %d Hz WAV, got %d channels at %d Hz",
			SampleRate, buf.Format.NumChannels, buf.Format.SampleRate)
	}
	const maxInt16 = 32768.0
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / maxInt16
	}
	return out, nil
}

package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	in := []float32{0, 0.5, -0.5, 1.5, -2}
	if err := Write(path, in, SampleRate); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	want := []float32{0, 0.5, -0.5, 1, -1}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 0.001 {
			t.Fatalf("sample %d = %v, want ~%v", i, out[i], want[i])
		}
	}
}

func TestRead_RejectsWrongRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.wav")
	if err := Write(path, []float32{0.1, 0.2}, 44100); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected sample rate error")
	}
}

func TestRead_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected invalid file error")
	}
}

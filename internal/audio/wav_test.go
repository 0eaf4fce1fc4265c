package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteSilence_Inspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")

	if err := WriteSilence(path, 48000, 500*time.Millisecond); err != nil {
		t.Fatalf("WriteSilence() failed: %v", err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect() failed: %v", err)
	}

	if info.SampleRate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}
	if info.Frames != 24000 {
		t.Errorf("Expected 24000 frames, got %d", info.Frames)
	}
	if info.Duration != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", info.Duration)
	}
	if !info.Silent() {
		t.Errorf("Expected silent output, RMS %f", info.RMS)
	}
}

func TestWriteSilence_InvalidRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteSilence(path, 0, time.Second); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestInspect_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	if err := os.WriteFile(path, []byte("not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(path); err == nil {
		t.Error("Expected decode error for non-WAV input")
	}
}

func TestCalculateRMS(t *testing.T) {
	// Two stereo frames of constant 0.5 amplitude
	sum := 4 * 0.25
	rms := CalculateRMS(sum, 2)
	if math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %f", rms)
	}

	if CalculateRMS(0, 0) != 0 {
		t.Error("Expected RMS 0 for empty input")
	}
}

func TestDetectSilence(t *testing.T) {
	if DetectSilence(0.2, DefaultSilenceThreshold) {
		t.Error("Expected loud signal to not be silence")
	}
	if !DetectSilence(0.0001, DefaultSilenceThreshold) {
		t.Error("Expected quiet signal to be silence")
	}
}

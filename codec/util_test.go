package codec

import "testing"

func TestScaleDimensionsPreservesAspectRatio(t *testing.T) {
	w, h := ScaleDimensions(1920, 1080, 960, 0)
	if w != 960 || h != 540 {
		t.Fatalf("expected 960x540, got %dx%d", w, h)
	}
}

func TestScaleDimensionsNeverUpscales(t *testing.T) {
	w, h := ScaleDimensions(400, 300, 1600, 1200)
	if w != 400 || h != 300 {
		t.Fatalf("expected source dimensions to be preserved (no upscale), got %dx%d", w, h)
	}
}

func TestScaleDimensionsBoxFit(t *testing.T) {
	w, h := ScaleDimensions(1000, 500, 400, 400)
	if w != 400 || h != 200 {
		t.Fatalf("expected the tighter axis to drive the scale, got %dx%d", w, h)
	}
}

func TestScaleDimensionsZeroTargetReturnsSource(t *testing.T) {
	w, h := ScaleDimensions(640, 480, 0, 0)
	if w != 640 || h != 480 {
		t.Fatalf("expected source dimensions when no target given, got %dx%d", w, h)
	}
}

package codec

// ScaleDimensions computes an output (w, h) that preserves the source aspect
// ratio within a (targetW, targetH) box, never upscaling past the source.
// Pass 0 for either axis to derive it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW <= 0 && targetH <= 0 {
		return srcW, srcH
	}
	if targetW <= 0 {
		if targetH >= srcH {
			return srcW, srcH
		}
		ratio := float64(targetH) / float64(srcH)
		w := int(float64(srcW) * ratio)
		if w < 1 {
			w = 1
		}
		return w, targetH
	}
	if targetH <= 0 {
		if targetW >= srcW {
			return srcW, srcH
		}
		ratio := float64(targetW) / float64(srcW)
		h := int(float64(srcH) * ratio)
		if h < 1 {
			h = 1
		}
		return targetW, h
	}
	if targetW >= srcW && targetH >= srcH {
		return srcW, srcH
	}
	wRatio := float64(targetW) / float64(srcW)
	hRatio := float64(targetH) / float64(srcH)
	ratio := wRatio
	if hRatio < wRatio {
		ratio = hRatio
	}
	w := int(float64(srcW) * ratio)
	h := int(float64(srcH) * ratio)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

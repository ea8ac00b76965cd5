package testsupport

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// PNG renders a small deterministic grayscale gradient. The seed perturbs
// the pixels so distinct seeds produce distinct content hashes.
func PNG(t testing.TB, seed byte) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Pix[y*img.Stride+x] = seed + byte(x*7+y*3)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG drops a fixture image at the target path, creating parents.
func WritePNG(t testing.TB, path string, seed byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, PNG(t, seed), 0o644); err != nil {
		t.Fatalf("write fixture png: %v", err)
	}
}

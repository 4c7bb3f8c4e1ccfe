package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/benbeisheim/chess-backend/internal/model"
)

func TestPNG(t *testing.T) {
	g := model.NewGame()
	for _, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		m, err := model.ParseUCIMove(uci)
		if err != nil {
			t.Fatalf("ParseUCIMove(%q): %v", uci, err)
		}
		if _, err := g.Apply(m); err != nil {
			t.Fatalf("Apply(%s): %v", uci, err)
		}
	}

	for _, size := range []int{0, 256} {
		var buf bytes.Buffer
		if err := PNG(&buf, g.State(), size); err != nil {
			t.Fatalf("PNG(size %d): %v", size, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := size
		if want == 0 {
			want = DefaultBoardSize
		}
		if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
			t.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), want, want)
		}
	}
}

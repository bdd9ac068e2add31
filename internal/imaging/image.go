package imaging

// Plane is a single-channel float image with values nominally in [0, 1].
type Plane struct {
	Pix    []float64
	Width  int
	Height int
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Pix:    make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the value at (x, y). No bounds checking.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y). No bounds checking.
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	out := NewPlane(p.Width, p.Height)
	copy(out.Pix, p.Pix)

	return out
}

// Image is a normalized frame: one plane for mono, three (R, G, B) for
// color, all values in [0, 1].
type Image struct {
	Ch     []*Plane
	Width  int
	Height int
}

// NewImage allocates an image with the given channel count.
func NewImage(width, height, channels int) *Image {
	img := &Image{Width: width, Height: height}
	for i := 0; i < channels; i++ {
		img.Ch = append(img.Ch, NewPlane(width, height))
	}

	return img
}

// Color reports whether the image carries three channels.
func (img *Image) Color() bool {
	return len(img.Ch) == 3
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height}
	for _, ch := range img.Ch {
		out.Ch = append(out.Ch, ch.Clone())
	}

	return out
}

// Luminance collapses the image to a single plane using Rec.601 weights
// for color input. Mono images return a copy of the only channel.
func (img *Image) Luminance() *Plane {
	if !img.Color() {
		return img.Ch[0].Clone()
	}
	lum := NewPlane(img.Width, img.Height)
	r, g, b := img.Ch[0].Pix, img.Ch[1].Pix, img.Ch[2].Pix
	for i := range lum.Pix {
		lum.Pix[i] = 0.299*r[i] + 0.587*g[i] + 0.114*b[i]
	}

	return lum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}

	return v
}

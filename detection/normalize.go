package detection

import "image"

// Corners are the four pixel-space corners of a bounding box in a fixed winding
// order: top-left, top-right, bottom-right, bottom-left.
type Corners [4]image.Point

// PixelCorners converts a normalized bounding box into pixel-space corners for
// a frame of the given dimensions. Each normalized coordinate is clipped to
// [0,1] before scaling so detector overshoot cannot produce out-of-frame
// pixels.
func PixelCorners(box NormalizedBox, width, height int) Corners {
	x0 := int(clip(box.XMin) * float64(width))
	y0 := int(clip(box.YMin) * float64(height))
	x1 := int(clip(box.XMax) * float64(width))
	y1 := int(clip(box.YMax) * float64(height))
	return Corners{
		image.Point{x0, y0},
		image.Point{x1, y0},
		image.Point{x1, y1},
		image.Point{x0, y1},
	}
}

// SizeRatios returns the box width and height as fractions of the frame
// dimensions, for consumers that need relative rather than pixel size.
func (c Corners) SizeRatios(width, height int) (float64, float64) {
	w := float64(c[1].X-c[0].X) / float64(width)
	h := float64(c[3].Y-c[0].Y) / float64(height)
	return w, h
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

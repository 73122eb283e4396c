package detection

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestClassifyLabel(t *testing.T) {
	id, ok := ClassifyLabel("backpack")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, TargetBackpack)

	id, ok = ClassifyLabel("person")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, TargetPerson)

	_, ok = ClassifyLabel("traffic light")
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = ClassifyLabel("")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTargetLabel(t *testing.T) {
	test.That(t, TargetBackpack.Label(), test.ShouldEqual, "backpack")
	test.That(t, TargetPerson.Label(), test.ShouldEqual, "person")
	test.That(t, TargetID(7).Label(), test.ShouldEqual, "")
}

func TestConfidenceFilter(t *testing.T) {
	dets := []Detection{
		{Label: "backpack", Confidence: 0.9},
		{Label: "person", Confidence: 0.4},
		{Label: "backpack", Confidence: 0.5},
	}
	filt := NewConfidenceFilter(0.5)
	out := filt(dets)
	test.That(t, out, test.ShouldHaveLength, 2)
	test.That(t, out[0].Confidence, test.ShouldEqual, 0.9)
	test.That(t, out[1].Confidence, test.ShouldEqual, 0.5)
}

func TestPixelCorners(t *testing.T) {
	c := PixelCorners(NormalizedBox{0.4, 0.4, 0.6, 0.6}, 416, 416)
	test.That(t, c[0], test.ShouldResemble, image.Point{166, 166})
	test.That(t, c[1], test.ShouldResemble, image.Point{249, 166})
	test.That(t, c[2], test.ShouldResemble, image.Point{249, 249})
	test.That(t, c[3], test.ShouldResemble, image.Point{166, 249})

	w, h := c.SizeRatios(416, 416)
	test.That(t, w, test.ShouldAlmostEqual, 0.2, 0.01)
	test.That(t, h, test.ShouldAlmostEqual, 0.2, 0.01)
}

func TestPixelCornersClipsOvershoot(t *testing.T) {
	c := PixelCorners(NormalizedBox{-0.2, 0.5, 1.3, 1.01}, 400, 300)
	test.That(t, c[0], test.ShouldResemble, image.Point{0, 150})
	test.That(t, c[1], test.ShouldResemble, image.Point{400, 150})
	test.That(t, c[2], test.ShouldResemble, image.Point{400, 300})
	test.That(t, c[3], test.ShouldResemble, image.Point{0, 300})

	w, h := c.SizeRatios(400, 300)
	test.That(t, w, test.ShouldEqual, 1.0)
	test.That(t, h, test.ShouldEqual, 0.5)
}

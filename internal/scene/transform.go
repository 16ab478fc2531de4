package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an object in the world: scale first, then rotate about X, Y
// and Z (Tait-Bryan angles in radians), then translate.
type Transform struct {
	Translation mgl32.Vec3
	Scale       mgl32.Vec3
	Rotation    mgl32.Vec3
}

// Identity leaves an object where its mesh puts it.
func Identity() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix is translate * rotX * rotY * rotZ * scale, built directly rather than
// by multiplying the five matrices out.
func (t Transform) Matrix() mgl32.Mat4 {
	c1, s1 := cos(t.Rotation.X()), sin(t.Rotation.X())
	c2, s2 := cos(t.Rotation.Y()), sin(t.Rotation.Y())
	c3, s3 := cos(t.Rotation.Z()), sin(t.Rotation.Z())
	sx, sy, sz := t.Scale.X(), t.Scale.Y(), t.Scale.Z()

	// Column major.
	return mgl32.Mat4{
		sx * (c2 * c3),
		sx * (c1*s3 + c3*s1*s2),
		sx * (s1*s3 - c1*c3*s2),
		0,

		sy * (-c2 * s3),
		sy * (c1*c3 - s1*s2*s3),
		sy * (c3*s1 + c1*s2*s3),
		0,

		sz * s2,
		sz * (-c2 * s1),
		sz * (c1 * c2),
		0,

		t.Translation.X(), t.Translation.Y(), t.Translation.Z(), 1,
	}
}

func cos(a float32) float32 { return float32(math.Cos(float64(a))) }
func sin(a float32) float32 { return float32(math.Sin(float64(a))) }

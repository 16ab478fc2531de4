package scene

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera maps view space into the Vulkan canonical view volume: x and y in
// [-1, 1] with y pointing down, z in [0, 1].
type Camera struct {
	projection mgl32.Mat4
}

func NewCamera() *Camera {
	return &Camera{projection: mgl32.Ident4()}
}

// SetOrthographicProjection maps the box bounded by the given planes onto the
// view volume. top is the minimum y and bottom the maximum.
func (c *Camera) SetOrthographicProjection(left, right, top, bottom, near, far float32) {
	p := mgl32.Ident4()
	p.Set(0, 0, 2/(right-left))
	p.Set(1, 1, 2/(bottom-top))
	p.Set(2, 2, 1/(far-near))
	p.Set(0, 3, -(right+left)/(right-left))
	p.Set(1, 3, -(bottom+top)/(bottom-top))
	p.Set(2, 3, -near/(far-near))
	c.projection = p
}

// SetPerspectiveProjection maps the frustum around the z axis with the given
// vertical field of view in radians and width/height aspect ratio.
func (c *Camera) SetPerspectiveProjection(fovY, aspect, near, far float32) {
	if aspect == 0 {
		panic(errors.AssertionFailedf("perspective projection with zero aspect ratio"))
	}

	tanHalfFovY := float32(math.Tan(float64(fovY) / 2))

	var p mgl32.Mat4
	p.Set(0, 0, 1/(aspect*tanHalfFovY))
	p.Set(1, 1, 1/tanHalfFovY)
	p.Set(2, 2, far/(far-near))
	p.Set(3, 2, 1)
	p.Set(2, 3, -(far*near)/(far-near))
	c.projection = p
}

func (c *Camera) Projection() mgl32.Mat4 {
	return c.projection
}

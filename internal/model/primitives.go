package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

func Triangle() Mesh {
	return Mesh{
		Name: "triangle",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{0.0, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}},
			{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 1, 0}},
			{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}},
		},
	}
}

type cubeFace struct {
	corners [4]mgl32.Vec3
	color   mgl32.Vec3
}

var cubeFaces = []cubeFace{
	// left
	{[4]mgl32.Vec3{{-.5, -.5, -.5}, {-.5, .5, .5}, {-.5, -.5, .5}, {-.5, .5, -.5}}, mgl32.Vec3{.9, .9, .9}},
	// right
	{[4]mgl32.Vec3{{.5, -.5, -.5}, {.5, .5, .5}, {.5, -.5, .5}, {.5, .5, -.5}}, mgl32.Vec3{.8, .8, .1}},
	// top, y points down
	{[4]mgl32.Vec3{{-.5, -.5, -.5}, {.5, -.5, .5}, {-.5, -.5, .5}, {.5, -.5, -.5}}, mgl32.Vec3{.9, .6, .1}},
	// bottom
	{[4]mgl32.Vec3{{-.5, .5, -.5}, {.5, .5, .5}, {-.5, .5, .5}, {.5, .5, -.5}}, mgl32.Vec3{.8, .1, .1}},
	// nose
	{[4]mgl32.Vec3{{-.5, -.5, .5}, {.5, .5, .5}, {-.5, .5, .5}, {.5, -.5, .5}}, mgl32.Vec3{.1, .1, .8}},
	// tail
	{[4]mgl32.Vec3{{-.5, -.5, -.5}, {.5, .5, -.5}, {-.5, .5, -.5}, {.5, -.5, -.5}}, mgl32.Vec3{.1, .8, .1}},
}

// Cube is a unit cube centered on offset with a solid color per face.
func Cube(offset mgl32.Vec3) Mesh {
	mesh := Mesh{Name: "cube"}

	for _, face := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		for _, corner := range face.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: corner.Add(offset), Color: face.color})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+3, base+1)
	}

	return mesh
}

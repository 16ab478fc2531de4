package model

import (
	"context"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// DecodeOBJ reads the geometry of a Wavefront OBJ file. Polygons are fanned
// into triangles, vertices are shared by position and every vertex gets color.
// Materials are ignored.
func DecodeOBJ(r io.Reader, color mgl32.Vec3) (Mesh, error) {
	decoder, err := obj.DecodeReader(r, strings.NewReader(""))
	if err != nil {
		return Mesh{}, errors.Wrap(err, "decode obj")
	}

	var mesh Mesh
	uniqueVertices := make(map[int]uint32)

	addVertex := func(face obj.Face, faceIndex int) error {
		vertInd := face.Vertices[faceIndex]
		if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
			return errors.Newf("face refers to missing vertex %d", vertInd+1)
		}

		index, vertexExists := uniqueVertices[vertInd]
		if !vertexExists {
			index = uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: mgl32.Vec3{
					decoder.Vertices[vertInd*3],
					decoder.Vertices[vertInd*3+1],
					decoder.Vertices[vertInd*3+2],
				},
				Color: color,
			})
			uniqueVertices[vertInd] = index
		}

		mesh.Indices = append(mesh.Indices, index)
		return nil
	}

	for _, decodedObj := range decoder.Objects {
		if mesh.Name == "" {
			mesh.Name = decodedObj.Name
		}

		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range []int{0, i - 1, i} {
					err = addVertex(face, corner)
					if err != nil {
						return Mesh{}, err
					}
				}
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return Mesh{}, errors.New("obj contains no faces")
	}
	return mesh, nil
}

// MeshSource names an OBJ file and the color to give its vertices.
type MeshSource struct {
	Path  string
	Color mgl32.Vec3
}

// LoadMeshes decodes every source concurrently. The result is in source order;
// the first failure cancels the rest.
func LoadMeshes(ctx context.Context, fsys fs.FS, sources []MeshSource) ([]Mesh, error) {
	meshes := make([]Mesh, len(sources))
	group, ctx := errgroup.WithContext(ctx)

	for i := range sources {
		idx := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			source := sources[idx]
			file, err := fsys.Open(source.Path)
			if err != nil {
				return errors.Wrapf(err, "open mesh %s", source.Path)
			}
			defer file.Close()

			mesh, err := DecodeOBJ(file, source.Color)
			if err != nil {
				return errors.Wrapf(err, "mesh %s", source.Path)
			}
			if mesh.Name == "" || strings.HasPrefix(mesh.Name, "unnamed") {
				mesh.Name = strings.TrimSuffix(path.Base(source.Path), path.Ext(source.Path))
			}

			meshes[idx] = mesh
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return meshes, nil
}

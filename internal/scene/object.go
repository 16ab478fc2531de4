// Package scene holds the objects drawn each frame and the camera they are seen
// through.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

type ObjectID uint32

// Model is anything that can bind its buffers and record a draw.
type Model interface {
	Bind(cmd gpu.CommandBuffer)
	Draw(cmd gpu.CommandBuffer)
}

type Object struct {
	ID        ObjectID
	Model     Model
	Transform Transform
	Color     mgl32.Vec3
}

// IDAllocator hands out object IDs in increasing order starting at zero.
type IDAllocator struct {
	next ObjectID
}

func (a *IDAllocator) Next() ObjectID {
	id := a.next
	a.next++
	return id
}

// Scene owns a set of objects and the allocator that names them.
type Scene struct {
	ids     IDAllocator
	objects []*Object
}

func New() *Scene {
	return &Scene{}
}

// Add assigns obj a fresh ID, stores it and returns the stored object. The ID
// set on obj by the caller is ignored.
func (s *Scene) Add(obj Object) *Object {
	obj.ID = s.ids.Next()
	stored := &obj
	s.objects = append(s.objects, stored)
	return stored
}

// Objects returns the objects in the order they were added. The slice is only
// valid until the next Add or Remove.
func (s *Scene) Objects() []*Object {
	return s.objects
}

func (s *Scene) Get(id ObjectID) (*Object, bool) {
	for _, obj := range s.objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return nil, false
}

// Remove drops the object with the given ID and reports whether it was present.
// IDs are never reused.
func (s *Scene) Remove(id ObjectID) bool {
	for i, obj := range s.objects {
		if obj.ID == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) Len() int {
	return len(s.objects)
}

// Package semantic loads scene descriptors that name the object ids carried
// by an instance mesh.
package semantic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/logger"
)

// MaxID is the largest category or object id a descriptor may use.
const MaxID = 10000

// Errors returned while loading descriptors.
var (
	ErrNoClasses   = errors.New("descriptor has no classes")
	ErrBadRotation = errors.New("rotation must have 4 components")
)

// Category is a named object class.
type Category struct {
	ID   int
	Name string
}

// OBB is an oriented bounding box in world space.
type OBB struct {
	Center   mgl32.Vec3
	Sizes    mgl32.Vec3
	Rotation mgl32.Quat
}

// HalfExtents returns half the box sizes.
func (b OBB) HalfExtents() mgl32.Vec3 {
	return b.Sizes.Mul(0.5)
}

// Contains reports whether p lies inside the box.
func (b OBB) Contains(p mgl32.Vec3) bool {
	local := b.Rotation.Inverse().Rotate(p.Sub(b.Center))
	h := b.HalfExtents()
	for i := 0; i < 3; i++ {
		if local[i] < -h[i] || local[i] > h[i] {
			return false
		}
	}
	return true
}

// Object is one scene instance.
type Object struct {
	ID       int
	Category *Category
	Box      OBB
}

// Scene indexes categories and objects by id.
type Scene struct {
	categories map[int]*Category
	objects    map[int]*Object
}

type jsonHouse struct {
	Classes []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"classes"`
	Objects []struct {
		ID          int `json:"id"`
		ClassID     int `json:"class_id"`
		OrientedBox struct {
			ABB struct {
				Center [3]float32 `json:"center"`
				Sizes  [3]float32 `json:"sizes"`
			} `json:"abb"`
			Orientation struct {
				Translation [3]float32 `json:"translation"`
				Rotation    []float32  `json:"rotation"`
			} `json:"orientation"`
		} `json:"oriented_bbox"`
	} `json:"objects"`
}

// LoadFile reads a descriptor from path. worldRotation is applied to every
// object box, normally the same rotation used to normalize the mesh.
func LoadFile(path string, worldRotation mgl32.Quat) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading semantic descriptor: %w", err)
	}
	scene, err := Parse(data, worldRotation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

// Parse decodes a descriptor. Ids above MaxID are skipped with an error log.
// Descriptors without an objects array only carry categories.
func Parse(data []byte, worldRotation mgl32.Quat) (*Scene, error) {
	var house jsonHouse
	if err := json.Unmarshal(data, &house); err != nil {
		return nil, fmt.Errorf("decoding semantic descriptor: %w", err)
	}
	if house.Classes == nil {
		return nil, ErrNoClasses
	}

	s := &Scene{
		categories: make(map[int]*Category, len(house.Classes)),
		objects:    make(map[int]*Object, len(house.Objects)),
	}

	for _, c := range house.Classes {
		if c.ID > MaxID {
			logger.Error("category id exceeds maximum", zap.Int("id", c.ID), zap.Int("max", MaxID))
			continue
		}
		s.categories[c.ID] = &Category{ID: c.ID, Name: c.Name}
	}

	world := worldRotation.Normalize()
	for _, o := range house.Objects {
		if o.ID > MaxID {
			logger.Error("object id exceeds maximum", zap.Int("id", o.ID), zap.Int("max", MaxID))
			continue
		}
		orient := o.OrientedBox.Orientation
		if len(orient.Rotation) != 4 {
			return nil, fmt.Errorf("object %d: %w", o.ID, ErrBadRotation)
		}
		// Stored as x, y, z, w.
		boxRotation := mgl32.Quat{
			W: orient.Rotation[3],
			V: mgl32.Vec3{orient.Rotation[0], orient.Rotation[1], orient.Rotation[2]},
		}.Normalize()

		// box -> world: world * (boxRotation * c + translation)
		local := boxRotation.Rotate(mgl32.Vec3(o.OrientedBox.ABB.Center)).Add(mgl32.Vec3(orient.Translation))
		obj := &Object{
			ID: o.ID,
			Box: OBB{
				Center:   world.Rotate(local),
				Sizes:    mgl32.Vec3(o.OrientedBox.ABB.Sizes),
				Rotation: world.Mul(boxRotation).Normalize(),
			},
		}
		// Objects of unknown classes are kept without a category.
		obj.Category = s.categories[o.ClassID]
		s.objects[o.ID] = obj
	}

	logger.Debug("semantic descriptor parsed",
		zap.Int("categories", len(s.categories)),
		zap.Int("objects", len(s.objects)))
	return s, nil
}

// Category returns the category name of objectID.
func (s *Scene) Category(objectID int) (string, bool) {
	o, ok := s.objects[objectID]
	if !ok || o.Category == nil {
		return "", false
	}
	return o.Category.Name, true
}

// Object returns the object with id.
func (s *Scene) Object(id int) (*Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// CategoryByID returns the category with id.
func (s *Scene) CategoryByID(id int) (*Category, bool) {
	c, ok := s.categories[id]
	return c, ok
}

// CategoryCount returns the number of categories.
func (s *Scene) CategoryCount() int { return len(s.categories) }

// ObjectCount returns the number of objects.
func (s *Scene) ObjectCount() int { return len(s.objects) }

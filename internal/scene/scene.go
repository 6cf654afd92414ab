// Package scene turns the model-construction JSON emitted by the
// backend into a flat list of renderable primitive instances.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PrimitiveType enumerates the supported solid shapes.
type PrimitiveType string

const (
	Box      PrimitiveType = "box"
	Cylinder PrimitiveType = "cylinder"
	Sphere   PrimitiveType = "sphere"
)

// Symmetry expands a primitive into mirrored copies.
type Symmetry string

const (
	SymmetryNone     Symmetry = "none"
	SymmetryQuadrant Symmetry = "quadrant"
	SymmetryMirrorX  Symmetry = "mirror_x"
)

// ErrInvalidScene marks input missing the required primitives list.
var ErrInvalidScene = errors.New("scene: primitives list missing or not a list")

// Vec3 is a point or Euler rotation in scene space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dimensions carries per-type sizing; unused fields stay zero.
type Dimensions struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Depth  float64 `json:"depth,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// Primitive is one declared shape after defaulting.
type Primitive struct {
	Name       string        `json:"name"`
	Type       PrimitiveType `json:"type"`
	Dimensions Dimensions    `json:"dimensions"`
	Position   Vec3          `json:"position"`
	Rotation   Vec3          `json:"rotation"`
	Symmetry   Symmetry      `json:"symmetry"`
}

// Instance is one placed copy of a primitive after symmetry expansion.
type Instance struct {
	Primitive int  `json:"primitive"`
	Position  Vec3 `json:"position"`
	Rotation  Vec3 `json:"rotation"`
}

// Scene is the fully expanded result.
type Scene struct {
	Primitives []Primitive `json:"primitives"`
	Instances  []Instance  `json:"instances"`
}

// raw decode shape: pointers so absent fields can be defaulted.
type primitiveJSON struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Dimensions struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
		Depth  *float64 `json:"depth"`
		Radius *float64 `json:"radius"`
	} `json:"dimensions"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
	Symmetry string `json:"symmetry"`
}

// Build parses the backend's JSON and expands symmetry groups into
// concrete instances, preserving declaration order.
func Build(data []byte) (*Scene, error) {
	var envelope struct {
		Primitives json.RawMessage `json:"primitives"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if len(envelope.Primitives) == 0 || string(envelope.Primitives) == "null" {
		return nil, ErrInvalidScene
	}
	var raw []primitiveJSON
	if err := json.Unmarshal(envelope.Primitives, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	scene := &Scene{}
	for i, rp := range raw {
		p := resolvePrimitive(rp)
		scene.Primitives = append(scene.Primitives, p)
		scene.Instances = append(scene.Instances, expand(p, i)...)
	}
	return scene, nil
}

// resolvePrimitive normalizes the type and fills per-type dimension
// defaults. Unknown types degrade to a default box rather than failing
// the whole scene.
func resolvePrimitive(rp primitiveJSON) Primitive {
	p := Primitive{
		Name:     rp.Name,
		Position: rp.Position,
		Rotation: rp.Rotation,
		Symmetry: normalizeSymmetry(rp.Symmetry),
	}
	switch PrimitiveType(strings.ToLower(rp.Type)) {
	case Cylinder:
		p.Type = Cylinder
		p.Dimensions.Radius = valueOr(rp.Dimensions.Radius, 0.1)
		p.Dimensions.Height = valueOr(rp.Dimensions.Height, 1)
	case Sphere:
		p.Type = Sphere
		p.Dimensions.Radius = valueOr(rp.Dimensions.Radius, 0.5)
	default:
		p.Type = Box
		p.Dimensions.Width = valueOr(rp.Dimensions.Width, 1)
		p.Dimensions.Height = valueOr(rp.Dimensions.Height, 1)
		p.Dimensions.Depth = valueOr(rp.Dimensions.Depth, 1)
	}
	return p
}

func normalizeSymmetry(s string) Symmetry {
	switch Symmetry(strings.ToLower(s)) {
	case SymmetryQuadrant:
		return SymmetryQuadrant
	case SymmetryMirrorX:
		return SymmetryMirrorX
	default:
		return SymmetryNone
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// expand materializes mirrored copies. Quadrant symmetry yields four
// instances in the fixed sign order (+,+), (+,-), (-,+), (-,-) applied
// to the x and z position components; mirror_x yields two with the x
// sign flipped.
func expand(p Primitive, index int) []Instance {
	base := Instance{Primitive: index, Position: p.Position, Rotation: p.Rotation}
	switch p.Symmetry {
	case SymmetryQuadrant:
		signs := [4][2]float64{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
		out := make([]Instance, 0, 4)
		for _, s := range signs {
			inst := base
			inst.Position.X = p.Position.X * s[0]
			inst.Position.Z = p.Position.Z * s[1]
			out = append(out, inst)
		}
		return out
	case SymmetryMirrorX:
		mirror := base
		mirror.Position.X = -p.Position.X
		return []Instance{base, mirror}
	default:
		return []Instance{base}
	}
}

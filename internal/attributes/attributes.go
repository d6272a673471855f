// Package attributes manages named semantic asset configurations stored as
// JSON files next to the assets they describe.
package attributes

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
)

// FileSuffix is the extension of semantic asset configuration files.
const FileSuffix = ".semantic_config.json"

// DefaultHandle names the template every loaded configuration starts from.
const DefaultHandle = "default"

// SemanticAssetAttributes describes how to build instance meshes for one
// scene.
type SemanticAssetAttributes struct {
	Handle        string `json:"-"`
	ID            int    `json:"-"`
	FileDirectory string `json:"-"`

	RenderAsset        string     `json:"render_asset,omitempty"`
	SemanticAsset      string     `json:"semantic_asset"`
	SemanticDescriptor string     `json:"semantic_descriptor_filename,omitempty"`
	SplitInstanceMesh  bool       `json:"split_instance_mesh"`
	Up                 [3]float32 `json:"up"`
	Front              [3]float32 `json:"front"`
	UnitsToMeters      float32    `json:"units_to_meters"`
}

// Default returns the template configuration: Z-up semantic meshes split by
// object.
func Default() *SemanticAssetAttributes {
	return &SemanticAssetAttributes{
		Handle:            DefaultHandle,
		SplitInstanceMesh: true,
		Up:                [3]float32{0, 0, 1},
		Front:             [3]float32{0, 1, 0},
		UnitsToMeters:     1,
	}
}

// Clone returns a copy of a.
func (a *SemanticAssetAttributes) Clone() *SemanticAssetAttributes {
	c := *a
	return &c
}

// InstanceAsset returns the asset the instance meshes are built from: the
// semantic asset, or the render asset when no separate semantic asset is set.
func (a *SemanticAssetAttributes) InstanceAsset() string {
	if a.SemanticAsset != "" {
		return a.SemanticAsset
	}
	return a.RenderAsset
}

// Options derives pipeline options from the configuration. The asset's native
// gravity is the opposite of its up vector and its front is taken as is.
// Engine gravity and front come from base.
func (a *SemanticAssetAttributes) Options(base instancemesh.Options) instancemesh.Options {
	opts := base
	opts.Split = a.SplitInstanceMesh
	if up := mgl32.Vec3(a.Up); up.Len() > 0 {
		opts.NativeGravity = up.Mul(-1)
	}
	if front := mgl32.Vec3(a.Front); front.Len() > 0 {
		opts.NativeFront = front
	}
	if a.UnitsToMeters > 0 {
		opts.Scale = a.UnitsToMeters
	}
	return opts
}

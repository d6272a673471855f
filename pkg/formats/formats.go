// Package formats provides parsers for mesh asset file formats.
package formats

// Note: PLY (Polygon File Format) is implemented in ply.go. glTF is read
// through github.com/qmuntal/gltf by the importer package.

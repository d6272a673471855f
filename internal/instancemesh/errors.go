package instancemesh

import (
	"errors"
	"fmt"
)

// Pipeline errors. Every one of them aborts processing of a single asset.
var (
	ErrNoMesh            = errors.New("importer produced no mesh")
	ErrMissingAttribute  = errors.New("required attribute missing")
	ErrUnsupportedFormat = errors.New("unsupported attribute encoding")
	ErrObjectIDOverflow  = errors.New("object ids can't be stored into 16 bits")
	ErrIndexOutOfRange   = errors.New("index references missing vertex")
	ErrBufferLength      = errors.New("parallel buffers differ in length")
)

// AssetError reports a fatal condition for one asset.
type AssetError struct {
	Path      string
	Attribute string
	Detail    string
	Err       error
}

func (e *AssetError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Path, e.Err)
	if e.Attribute != "" {
		msg += " (" + e.Attribute + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

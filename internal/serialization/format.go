// Package serialization implements the .gvz weight container: a binary
// file holding a model's state dictionary so classifiers can be loaded
// for attribution without a training framework present.
//
// Layout:
//
//	magic "GVIZ" (4 bytes)
//	format version, uint32 little-endian (4 bytes)
//	flags, uint32 little-endian (4 bytes)
//	header size, uint64 little-endian (8 bytes)
//	header JSON (header size bytes)
//	zero padding to a 64-byte boundary
//	tensor data section (offsets in TensorMeta are relative to here)
package serialization

import (
	"time"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "GVIZ"
	FormatVersion   = 1
	HeaderAlignment = 64 // Tensor data starts on a 64-byte boundary
	fixedPrefixSize = 4 + 4 + 4 + 8
)

// Data type strings used in the JSON header.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
)

// Flags for the .gvz format.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
)

// Header is the JSON header in a .gvz file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Architecture  string            `json:"architecture"` // Zoo architecture name (e.g. "simplecnn")
	NumClasses    int               `json:"num_classes"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // State dict key (e.g. "conv1.weight")
	DType  string `json:"dtype"`  // Data type string
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Int64:
		return DTypeInt64
	case tensor.Uint8:
		return DTypeUint8
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeInt64:
		return tensor.Int64, true
	case DTypeUint8:
		return tensor.Uint8, true
	default:
		return 0, false
	}
}

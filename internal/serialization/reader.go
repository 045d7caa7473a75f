package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// maxHeaderSize caps the JSON header to reject corrupt or hostile files.
const maxHeaderSize = 100 << 20

// Load reads a .gvz file and returns its state dictionary and header.
// All tensors are materialized on the CPU; callers move data to another
// device by loading the state dict through a backend of their choice.
func Load(path string) (map[string]*tensor.RawTensor, *Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	header, dataStart, err := readHeader(file)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	dataSize := info.Size() - dataStart

	stateDict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		if meta.Offset < 0 || meta.Size < 0 {
			return nil, nil, fmt.Errorf("tensor %q: %w", meta.Name, ErrNegativeOffset)
		}
		if meta.Offset+meta.Size > dataSize {
			return nil, nil, fmt.Errorf("tensor %q: %w", meta.Name, ErrOutOfBounds)
		}
		dtype, ok := stringToDtype(meta.DType)
		if !ok {
			return nil, nil, fmt.Errorf("tensor %q has dtype %q: %w", meta.Name, meta.DType, ErrUnknownDType)
		}

		shape := tensor.Shape(meta.Shape)
		raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		if want := int64(raw.ByteSize()); want != meta.Size {
			return nil, nil, fmt.Errorf("tensor %q: shape %v implies %d bytes, header says %d",
				meta.Name, shape, want, meta.Size)
		}

		if _, err := file.Seek(dataStart+meta.Offset, io.SeekStart); err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		if _, err := io.ReadFull(file, raw.Data()[:meta.Size]); err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}

	return stateDict, header, nil
}

// readHeader parses the fixed prefix and JSON header, returning the header
// and the byte offset where the tensor data section starts.
func readHeader(file *os.File) (*Header, int64, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err != nil {
		return nil, 0, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return nil, 0, fmt.Errorf("%w: got %q", ErrInvalidMagic, magic)
	}

	var version, flags uint32
	if err := binary.Read(file, binary.LittleEndian, &version); err != nil {
		return nil, 0, fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if err := binary.Read(file, binary.LittleEndian, &flags); err != nil {
		return nil, 0, fmt.Errorf("failed to read flags: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, 0, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerJSON); err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to parse header: %w", err)
	}

	pos := int64(fixedPrefixSize) + int64(headerSize)
	padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
	return &header, pos + padding, nil
}

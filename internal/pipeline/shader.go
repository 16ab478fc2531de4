package pipeline

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
)

const spirvMagic = 0x07230203

// LoadShader reads a compiled SPIR-V module from fsys.
func LoadShader(fsys fs.FS, name string) ([]uint32, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}

	code, err := BytesToBytecode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return code, nil
}

// BytesToBytecode converts a SPIR-V byte stream into the words Vulkan expects.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v size %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = common.ByteOrder.Uint32(b[i*4:])
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic number 0x%08x", byteCode[0])
	}
	return byteCode, nil
}

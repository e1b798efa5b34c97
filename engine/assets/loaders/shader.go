package loaders

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// ShaderLoader reads compiled SPIR-V modules.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	code, err := LoadSPIRV(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(code) * 4),
		Data:     &metadata.ShaderResourceData{Code: code},
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}

// LoadSPIRV reads a SPIR-V file and returns its words.
func LoadSPIRV(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Mark(err, core.ErrAssetNotFound)
		}
		err = errors.Wrapf(err, "failed to read shader %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	if len(buf) == 0 || len(buf)%4 != 0 {
		err := errors.Newf("shader %s is %d bytes, not a whole number of SPIR-V words", path, len(buf))
		core.LogError(err.Error())
		return nil, err
	}
	return bytesToBytecode(buf), nil
}

// bytesToBytecode packs little-endian bytes into words. Trailing bytes that
// do not fill a word are dropped.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = uint32(b[byteIndex]) |
			uint32(b[byteIndex+1])<<8 |
			uint32(b[byteIndex+2])<<16 |
			uint32(b[byteIndex+3])<<24
	}
	return byteCode
}

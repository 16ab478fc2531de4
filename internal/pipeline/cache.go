package pipeline

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

const (
	// cacheHeaderVersionOne is VK_PIPELINE_CACHE_HEADER_VERSION_ONE.
	cacheHeaderVersionOne uint32 = 1
	cacheHeaderSize              = 16 + 16
)

// ErrCacheInvalid marks pipeline cache data produced by a different driver or device.
var ErrCacheInvalid = errors.New("pipeline cache invalid")

// CacheHeader is the prefix Vulkan writes in front of pipeline cache data.
type CacheHeader struct {
	Length   uint32
	Version  uint32
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func ParseCacheHeader(data []byte) (CacheHeader, error) {
	var header CacheHeader
	if len(data) < cacheHeaderSize {
		return header, errors.Mark(errors.Newf("cache is %d bytes, shorter than its header", len(data)), ErrCacheInvalid)
	}

	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil {
		return header, errors.Mark(errors.Wrap(err, "read cache header"), ErrCacheInvalid)
	}
	return header, nil
}

// ValidateCacheHeader reports why data cannot seed a pipeline cache on the
// device, or nil when it can.
func ValidateCacheHeader(data []byte, identity gpu.Identity) error {
	header, err := ParseCacheHeader(data)
	if err != nil {
		return err
	}

	switch {
	case header.Length < cacheHeaderSize || int(header.Length) > len(data):
		return errors.Mark(errors.Newf("bad header length %d", header.Length), ErrCacheInvalid)
	case header.Version != cacheHeaderVersionOne:
		return errors.Mark(errors.Newf("unsupported header version %d", header.Version), ErrCacheInvalid)
	case header.VendorID != identity.VendorID:
		return errors.Mark(errors.Newf("vendor id 0x%x, driver expects 0x%x", header.VendorID, identity.VendorID), ErrCacheInvalid)
	case header.DeviceID != identity.DeviceID:
		return errors.Mark(errors.Newf("device id 0x%x, driver expects 0x%x", header.DeviceID, identity.DeviceID), ErrCacheInvalid)
	case header.UUID != identity.CacheUUID:
		return errors.Mark(errors.Newf("cache uuid %s, driver expects %s", header.UUID, identity.CacheUUID), ErrCacheInvalid)
	}

	return nil
}

// LoadCache returns the cache data stored at path if it was written by the same
// device. A missing or stale file is not an error; stale files are removed so
// the next save repopulates them.
func LoadCache(path string, identity gpu.Identity, logger log.FieldLogger) ([]byte, error) {
	logger = logger.WithField("path", path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("pipeline cache miss")
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "read pipeline cache %s", path)
	}

	err = ValidateCacheHeader(data, identity)
	if err != nil {
		logger.WithError(err).Warn("discarding pipeline cache")
		if removeErr := os.Remove(path); removeErr != nil {
			logger.WithError(removeErr).Debug("could not remove stale pipeline cache")
		}
		return nil, nil
	}

	logger.WithField("bytes", len(data)).Info("pipeline cache hit")
	return data, nil
}

// SaveCache writes the device's current pipeline cache to path.
func SaveCache(path string, resources gpu.Resources) error {
	data, err := resources.PipelineCacheData()
	if err != nil {
		return errors.Wrap(err, "get pipeline cache data")
	}
	if len(data) == 0 {
		return nil
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}
	return nil
}

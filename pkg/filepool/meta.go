package filepool

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nimbusfs/filepool/pkg/localfs"
	"github.com/nimbusfs/filepool/pkg/xlog"
)

var metaLog = xlog.GetLogger("filepool.meta")

// poolMagic seeds the CRC so a meta record produced for a different
// on-disk format never silently validates.
var poolMagic = []byte("CURVE-FILEPOOL-META-V1")

const (
	keyChunkSize    = "chunkSize"
	keyMetaPageSize = "metaPageSize"
	keyBlockSize    = "blockSize"
	keyFilePoolPath = "chunkfilepool_path"
	keyCRC          = "crc"
)

// PoolMeta is the persisted pool-meta descriptor.
type PoolMeta struct {
	ChunkSize    uint64
	MetaPageSize uint64
	HasBlockSize bool
	BlockSize    uint64
	FilePoolPath string
}

// crc32Value computes the CRC over MAGIC ∥ chunkSize ∥ metaPageSize ∥
// [blockSize] ∥ filePoolPath, fixed-width little-endian for numeric
// fields, raw bytes for the path. blockSize is only included when
// HasBlockSize is set, so old records without it still checksum
// consistently.
func (m PoolMeta) crc32Value() uint32 {
	buf := make([]byte, 0, len(poolMagic)+24+len(m.FilePoolPath))
	buf = append(buf, poolMagic...)
	buf = binary.LittleEndian.AppendUint64(buf, m.ChunkSize)
	buf = binary.LittleEndian.AppendUint64(buf, m.MetaPageSize)
	if m.HasBlockSize {
		buf = binary.LittleEndian.AppendUint64(buf, m.BlockSize)
	}
	buf = append(buf, []byte(m.FilePoolPath)...)
	return crc32.ChecksumIEEE(buf)
}

// EncodeMeta writes meta as a MetaPersistSize-byte, key/value,
// O_SYNC-written record. Padding bytes past the document are zero.
func EncodeMeta(fs localfs.Handle, meta PoolMeta, path string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d\n", keyChunkSize, meta.ChunkSize)
	fmt.Fprintf(&sb, "%s: %d\n", keyMetaPageSize, meta.MetaPageSize)
	if meta.HasBlockSize {
		fmt.Fprintf(&sb, "%s: %d\n", keyBlockSize, meta.BlockSize)
	}
	fmt.Fprintf(&sb, "%s: %s\n", keyFilePoolPath, meta.FilePoolPath)
	fmt.Fprintf(&sb, "%s: %d\n", keyCRC, meta.crc32Value())

	if sb.Len() > MetaPersistSize {
		return errors.Errorf("encoded pool meta exceeds %d bytes", MetaPersistSize)
	}

	record := make([]byte, MetaPersistSize)
	copy(record, sb.String())

	fd, err := fs.Open(path, os.O_RDWR|os.O_CREATE|os.O_SYNC)
	if err != nil {
		return errors.Wrap(err, "open meta file")
	}
	defer fs.Close(fd)

	n, err := fs.Write(fd, record, 0)
	if err != nil {
		return errors.Wrap(err, "write meta file")
	}
	if n != MetaPersistSize {
		return errors.Errorf("short write to meta file: %d of %d", n, MetaPersistSize)
	}

	metaLog.Infof("persisted pool meta to %s: %+v", path, meta)
	return nil
}

// DecodeMeta reads exactly expectedSize bytes from path and parses the
// key/value document, failing with ErrCorruptMeta on any required
// field missing or a CRC mismatch.
func DecodeMeta(fs localfs.Handle, path string, expectedSize uint32) (PoolMeta, error) {
	var meta PoolMeta

	fd, err := fs.Open(path, os.O_RDONLY)
	if err != nil {
		return meta, errors.Wrap(err, "open meta file")
	}
	defer fs.Close(fd)

	buf := make([]byte, expectedSize)
	n, err := fs.Read(fd, buf, 0)
	if err != nil {
		return meta, errors.Wrap(err, "read meta file")
	}
	if uint32(n) != expectedSize {
		return meta, errors.Wrapf(ErrCorruptMeta, "short read: %d of %d", n, expectedSize)
	}

	fields := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(buf))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\x00")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	chunkSizeStr, ok := fields[keyChunkSize]
	if !ok {
		return meta, errors.Wrapf(ErrCorruptMeta, "missing %s", keyChunkSize)
	}
	meta.ChunkSize, err = strconv.ParseUint(chunkSizeStr, 10, 64)
	if err != nil {
		return meta, errors.Wrapf(ErrCorruptMeta, "invalid %s", keyChunkSize)
	}

	metaPageSizeStr, ok := fields[keyMetaPageSize]
	if !ok {
		return meta, errors.Wrapf(ErrCorruptMeta, "missing %s", keyMetaPageSize)
	}
	meta.MetaPageSize, err = strconv.ParseUint(metaPageSizeStr, 10, 64)
	if err != nil {
		return meta, errors.Wrapf(ErrCorruptMeta, "invalid %s", keyMetaPageSize)
	}

	if blockSizeStr, ok := fields[keyBlockSize]; ok {
		meta.HasBlockSize = true
		meta.BlockSize, err = strconv.ParseUint(blockSizeStr, 10, 64)
		if err != nil {
			return meta, errors.Wrapf(ErrCorruptMeta, "invalid %s", keyBlockSize)
		}
	} else {
		meta.HasBlockSize = false
		meta.BlockSize = DefaultBlockSize
		metaLog.Warnf("meta file doesn't have `%s`, using default %d", keyBlockSize, DefaultBlockSize)
	}

	filePoolPath, ok := fields[keyFilePoolPath]
	if !ok {
		return meta, errors.Wrapf(ErrCorruptMeta, "missing %s", keyFilePoolPath)
	}
	meta.FilePoolPath = filePoolPath

	crcStr, ok := fields[keyCRC]
	if !ok {
		return meta, errors.Wrapf(ErrCorruptMeta, "missing %s", keyCRC)
	}
	crcValue, err := strconv.ParseUint(crcStr, 10, 32)
	if err != nil {
		return meta, errors.Wrapf(ErrCorruptMeta, "invalid %s", keyCRC)
	}

	if calc := meta.crc32Value(); uint32(crcValue) != calc {
		metaLog.Errorf("crc check failed for %s: calculated %d, recorded %d", path, calc, crcValue)
		return meta, errors.Wrapf(ErrCorruptMeta, "crc mismatch in %s", path)
	}

	return meta, nil
}

// Package segment persists one generation as a single immutable blob.
//
// Format:
//
//	header   magic "FGS1", format version, generation seq,
//	         codec name, compression name, section count
//	sections [length u32][crc32 u32][compressed payload] each
//	         section 1: metadata store snapshot
//	         section 2: content index snapshot
//
// Segments are self-describing (codec and compression are named in the
// header) and every section is CRC-checked, so a torn or bit-rotted file is
// detected at load instead of silently corrupting the index.
package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/hupe1980/findergo/codec"
	"github.com/hupe1980/findergo/metastore"
	"github.com/hupe1980/findergo/textindex"
)

var magic = [4]byte{'F', 'G', 'S', '1'}

const (
	formatVersion = uint16(1)
	sectionCount  = 2
	headerSize    = 24
)

// ErrCorrupt indicates a segment that cannot be read back: bad magic,
// unsupported version, truncated section or checksum mismatch.
var ErrCorrupt = errors.New("corrupt segment")

// Snapshot is the decoded content of a segment.
type Snapshot struct {
	Seq  uint64
	Meta *metastore.Store
	Text *textindex.Index
}

// Encode serializes a generation's stores into segment bytes.
func Encode(seq uint64, meta *metastore.Store, text *textindex.Index, c codec.Codec, comp Compressor) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	if comp == nil {
		comp = Default
	}

	codecName := c.Name()
	compName := comp.Name()

	var buf bytes.Buffer
	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(codecName)))
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(compName)))
	binary.LittleEndian.PutUint16(hdr[10:12], sectionCount)
	binary.LittleEndian.PutUint64(hdr[12:20], seq)
	buf.Write(hdr[:])
	buf.WriteString(codecName)
	buf.WriteString(compName)

	metaBytes, err := c.Marshal(meta.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("segment: encode metadata: %w", err)
	}
	docBytes, err := c.Marshal(text.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("segment: encode postings: %w", err)
	}

	for _, section := range [][]byte{metaBytes, docBytes} {
		compressed, err := comp.Compress(section)
		if err != nil {
			return nil, fmt.Errorf("segment: compress: %w", err)
		}
		var pre [8]byte
		binary.LittleEndian.PutUint32(pre[0:4], uint32(len(compressed)))
		binary.LittleEndian.PutUint32(pre[4:8], crc32.ChecksumIEEE(compressed))
		buf.Write(pre[:])
		buf.Write(compressed)
	}

	return buf.Bytes(), nil
}

// Decode parses segment bytes back into stores.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, v)
	}
	codecLen := int(binary.LittleEndian.Uint16(data[6:8]))
	compLen := int(binary.LittleEndian.Uint16(data[8:10]))
	sections := int(binary.LittleEndian.Uint16(data[10:12]))
	seq := binary.LittleEndian.Uint64(data[12:20])

	off := headerSize
	if len(data) < off+codecLen+compLen {
		return nil, fmt.Errorf("%w: truncated header names", ErrCorrupt)
	}
	codecName := string(data[off : off+codecLen])
	off += codecLen
	compName := string(data[off : off+compLen])
	off += compLen

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, codecName)
	}
	comp, err := compressorByNameStrict(compName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sections != sectionCount {
		return nil, fmt.Errorf("%w: unexpected section count %d", ErrCorrupt, sections)
	}

	raw := make([][]byte, 0, sections)
	for i := 0; i < sections; i++ {
		if len(data) < off+8 {
			return nil, fmt.Errorf("%w: truncated section %d", ErrCorrupt, i)
		}
		length := int(binary.LittleEndian.Uint32(data[off : off+4]))
		sum := binary.LittleEndian.Uint32(data[off+4 : off+8])
		off += 8
		if len(data) < off+length {
			return nil, fmt.Errorf("%w: truncated section %d body", ErrCorrupt, i)
		}
		body := data[off : off+length]
		off += length
		if crc32.ChecksumIEEE(body) != sum {
			return nil, fmt.Errorf("%w: section %d checksum mismatch", ErrCorrupt, i)
		}
		plain, err := comp.Decompress(body)
		if err != nil {
			return nil, fmt.Errorf("%w: section %d decompress: %v", ErrCorrupt, i, err)
		}
		raw = append(raw, plain)
	}

	var metaSnap metastore.Snapshot
	if err := c.Unmarshal(raw[0], &metaSnap); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ErrCorrupt, err)
	}
	var docs []textindex.DocSnapshot
	if err := c.Unmarshal(raw[1], &docs); err != nil {
		return nil, fmt.Errorf("%w: decode postings: %v", ErrCorrupt, err)
	}

	return &Snapshot{
		Seq:  seq,
		Meta: metastore.FromSnapshot(metaSnap),
		Text: textindex.FromSnapshot(docs),
	}, nil
}

// BlobName returns the canonical blob name for a generation's segment.
func BlobName(seq uint64) string {
	return fmt.Sprintf("segments/SEG-%06d", seq)
}

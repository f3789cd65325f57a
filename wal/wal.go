// Package wal provides write-ahead logging for staged upserts.
//
// Every accepted add-or-update is appended here before it is acknowledged,
// so staged mutations survive a crash between calls and commit. At commit
// time the log is checkpointed: entries folded into a durable segment are
// truncated away. On open, entries found past the manifest's checkpoint are
// replayed into the staging buffer.
//
// Records are individually zstd-compressed and CRC-checked; a torn tail
// (crash mid-append) is detected and discarded on open.
package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/findergo/codec"
	"github.com/hupe1980/findergo/model"
)

var magic = [4]byte{'F', 'G', 'W', '1'}

const (
	formatVersion = uint16(1)
	fileName      = "findergo.wal"
	recordHeader  = 8 // u32 length + u32 crc
)

// SyncMode controls when appended records are fsynced.
type SyncMode int

const (
	// SyncAlways fsyncs after every append. Slowest, no acknowledged entry
	// is ever lost.
	SyncAlways SyncMode = iota
	// SyncOnCheckpoint fsyncs only at commit time. A crash between commits
	// may lose staged (never committed) entries.
	SyncOnCheckpoint
)

// Options configures a WAL.
type Options struct {
	// Path is the directory holding the log file.
	Path string
	// Codec encodes entry payloads. Defaults to codec.Default.
	Codec codec.Codec
	// Mode selects the durability/performance tradeoff. Default SyncAlways.
	Mode SyncMode
}

// Entry is one logged upsert.
type Entry struct {
	Seq     uint64         `json:"seq"`
	Meta    model.FileMeta `json:"meta"`
	Content string         `json:"content,omitempty"`
}

// WAL is an append-only log of staged upserts.
type WAL struct {
	mu         sync.Mutex
	file       *os.File
	bw         *bufio.Writer
	path       string
	codec      codec.Codec
	mode       SyncMode
	seq        uint64
	dataOffset int64 // first byte after the header
	size       int64 // end of the last valid record

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the log in the configured directory, discarding any
// torn tail left by a crash.
func Open(optFns ...func(*Options)) (*WAL, error) {
	opts := Options{Codec: codec.Default, Mode: SyncAlways}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, fmt.Errorf("wal: create directory: %w", err)
	}
	path := filepath.Join(opts.Path, fileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: configured path
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	w := &WAL{
		file:  file,
		path:  path,
		codec: opts.Codec,
		mode:  opts.Mode,
		enc:   enc,
		dec:   dec,
	}

	if err := w.initialize(); err != nil {
		_ = file.Close()
		return nil, err
	}

	if _, err := file.Seek(w.size, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("wal: seek append position: %w", err)
	}
	w.bw = bufio.NewWriter(file)
	return w, nil
}

// initialize writes or validates the header and scans existing records to
// find the last valid sequence number and the torn-tail cutoff.
func (w *WAL) initialize() error {
	st, err := w.file.Stat()
	if err != nil {
		return err
	}

	headerLen := int64(8 + len(w.codec.Name()))

	if st.Size() == 0 {
		var hdr [8]byte
		copy(hdr[0:4], magic[:])
		binary.LittleEndian.PutUint16(hdr[4:6], formatVersion)
		binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(w.codec.Name())))
		if _, err := w.file.Write(hdr[:]); err != nil {
			return fmt.Errorf("wal: write header: %w", err)
		}
		if _, err := w.file.WriteString(w.codec.Name()); err != nil {
			return fmt.Errorf("wal: write header: %w", err)
		}
		if err := w.file.Sync(); err != nil {
			return err
		}
		w.dataOffset = headerLen
		w.size = headerLen
		return nil
	}

	var hdr [8]byte
	if _, err := w.file.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("wal: read header: %w", err)
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return fmt.Errorf("wal: bad magic in %s", w.path)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != formatVersion {
		return fmt.Errorf("wal: unsupported format version %d", v)
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[6:8]))
	name := make([]byte, nameLen)
	if _, err := w.file.ReadAt(name, 8); err != nil {
		return fmt.Errorf("wal: read header codec: %w", err)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return fmt.Errorf("wal: unknown codec %q", string(name))
	}
	w.codec = c
	w.dataOffset = int64(8 + nameLen)

	// Scan records to find the last valid one.
	w.size = w.dataOffset
	err = w.scan(func(e Entry) error {
		w.seq = e.Seq
		return nil
	})
	if err != nil {
		return err
	}

	// Drop any torn tail so appends continue from a clean boundary.
	if w.size < st.Size() {
		if err := w.file.Truncate(w.size); err != nil {
			return fmt.Errorf("wal: truncate torn tail: %w", err)
		}
	}
	return nil
}

// Append logs an upsert and returns its sequence number.
func (w *WAL) Append(meta model.FileMeta, content string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	w.seq++
	entry := Entry{Seq: w.seq, Meta: meta, Content: content}
	payload, err := w.codec.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("wal: encode entry: %w", err)
	}
	compressed := w.enc.EncodeAll(payload, nil)

	var pre [recordHeader]byte
	binary.LittleEndian.PutUint32(pre[0:4], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(pre[4:8], crc32.ChecksumIEEE(compressed))
	if _, err := w.bw.Write(pre[:]); err != nil {
		return 0, err
	}
	if _, err := w.bw.Write(compressed); err != nil {
		return 0, err
	}
	w.size += int64(recordHeader + len(compressed))

	if w.mode == SyncAlways {
		if err := w.syncLocked(); err != nil {
			return 0, err
		}
	}
	return w.seq, nil
}

// Sync flushes buffered records to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}
	return w.syncLocked()
}

func (w *WAL) syncLocked() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Seed raises the sequence counter to at least seq. Checkpointing truncates
// the file, so after a reopen the scanned counter restarts at zero; the
// engine seeds it with the manifest's checkpoint high-water mark so new
// appends always number above every entry already folded into a segment.
func (w *WAL) Seed(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq > w.seq {
		w.seq = seq
	}
}

// Seq returns the sequence number of the last appended entry.
func (w *WAL) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Replay calls fn for every logged entry in append order.
func (w *WAL) Replay(fn func(Entry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	w.size = w.dataOffset
	return w.scan(fn)
}

// scan iterates valid records starting at dataOffset, advancing w.size past
// each. It stops silently at the first invalid record (torn tail).
func (w *WAL) scan(fn func(Entry) error) error {
	off := w.dataOffset
	for {
		var pre [recordHeader]byte
		if _, err := w.file.ReadAt(pre[:], off); err != nil {
			return nil // end of log or torn header
		}
		length := int64(binary.LittleEndian.Uint32(pre[0:4]))
		sum := binary.LittleEndian.Uint32(pre[4:8])

		body := make([]byte, length)
		if _, err := w.file.ReadAt(body, off+recordHeader); err != nil {
			return nil // torn body
		}
		if crc32.ChecksumIEEE(body) != sum {
			return nil // corrupt record, stop here
		}

		payload, err := w.dec.DecodeAll(body, nil)
		if err != nil {
			return nil
		}
		var entry Entry
		if err := w.codec.Unmarshal(payload, &entry); err != nil {
			return nil
		}

		off += recordHeader + length
		w.size = off
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// Checkpoint truncates all logged entries after they have been folded into
// a durable segment. Sequence numbers keep increasing across checkpoints.
func (w *WAL) Checkpoint() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if err := w.file.Truncate(w.dataOffset); err != nil {
		return fmt.Errorf("wal: checkpoint truncate: %w", err)
	}
	if _, err := w.file.Seek(w.dataOffset, io.SeekStart); err != nil {
		return err
	}
	w.bw.Reset(w.file)
	w.size = w.dataOffset
	return w.file.Sync()
}

// Close flushes and closes the log file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.bw.Flush()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	w.enc.Close()
	w.dec.Close()
	if flushErr != nil {
		return flushErr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// Package wal persists entities between the collector and the sink so a
// crash or a long sink outage never loses an observation that was already
// read off the wire.
package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// Record layout on disk: [8 bytes big-endian id][4 bytes big-endian length][length bytes JSON].
const headerLen = 12

const (
	logName  = "wal.log"
	metaName = "wal.meta"
)

// FileWAL is an append-only log of length-prefixed JSON entity records plus a
// sidecar meta file holding the highest committed id. Recovery truncates any
// torn tail record, and TruncateCommitted rewrites the log without the
// records the sink has already acknowledged.
type FileWAL struct {
	mu        sync.Mutex
	dir       string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.WALEntryID
	committed ports.WALEntryID
	sizeBytes int64
}

func NewFileWAL(dir string) (*FileWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, logName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	w := &FileWAL{
		dir:    dir,
		file:   f,
		writer: bufio.NewWriterSize(f, 1<<20),
	}

	lastID, validLen, err := scanLog(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(validLen); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	w.nextID = lastID
	w.sizeBytes = validLen

	committed, err := readMeta(filepath.Join(dir, metaName))
	if err != nil {
		f.Close()
		return nil, err
	}
	w.committed = committed
	if w.nextID < w.committed {
		w.nextID = w.committed
	}
	return w, nil
}

// scanLog walks the record stream and reports the last complete record's id
// and the byte offset where valid data ends. A torn header or body at the
// tail is normal after a crash and is simply cut off.
func scanLog(f *os.File) (last ports.WALEntryID, validLen int64, err error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	r := bufio.NewReader(f)

	for {
		var hdr [headerLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return last, validLen, nil
			}
			return 0, 0, fmt.Errorf("wal scan header: %w", err)
		}
		length := int64(binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.CopyN(io.Discard, r, length); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return last, validLen, nil
			}
			return 0, 0, fmt.Errorf("wal scan body: %w", err)
		}
		last = ports.WALEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		validLen += headerLen + length
	}
}

func readMeta(path string) (ports.WALEntryID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return 0, nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("wal meta parse: %w", err)
	}
	return ports.WALEntryID(u), nil
}

func (w *FileWAL) Append(e *domain.Entity) (ports.WALEntryID, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID + 1
	if err := writeRecord(w.writer, id, b); err != nil {
		return 0, err
	}
	if err := w.writer.Flush(); err != nil {
		return 0, err
	}
	w.nextID = id
	w.sizeBytes += int64(headerLen + len(b))
	return id, nil
}

func writeRecord(out io.Writer, id ports.WALEntryID, body []byte) error {
	var hdr [headerLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(body)))
	if _, err := out.Write(hdr[:]); err != nil {
		return err
	}
	_, err := out.Write(body)
	return err
}

// Iterate replays every record with id >= from in append order.
func (w *FileWAL) Iterate(from ports.WALEntryID, fn func(id ports.WALEntryID, e *domain.Entity) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(w.dir, logName))
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [headerLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("wal iterate header: %w", err)
		}
		id := ports.WALEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		body := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("wal iterate body: %w", err)
		}
		if id < from {
			continue
		}

		var e domain.Entity
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("wal decode entry %d: %w", id, err)
		}
		if err := fn(id, &e); err != nil {
			return err
		}
	}
}

// Commit records that every entry up to and including upto reached the sink.
func (w *FileWAL) Commit(upto ports.WALEntryID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if upto > w.committed {
		w.committed = upto
	}
	return os.WriteFile(filepath.Join(w.dir, metaName),
		[]byte(fmt.Sprintf("%d\n", w.committed)), 0o644)
}

// TruncateCommitted compacts the log by rewriting it without the records the
// sink already acknowledged. The rewrite goes through a temp file and a
// rename, so a crash mid-compaction leaves either the old or the new log.
func (w *FileWAL) TruncateCommitted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committed == 0 {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}

	logPath := filepath.Join(w.dir, logName)
	tmpPath := logPath + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	var kept int64
	err = func() error {
		src, err := os.Open(logPath)
		if err != nil {
			return err
		}
		defer src.Close()

		r := bufio.NewReader(src)
		out := bufio.NewWriterSize(tmp, 1<<20)
		for {
			var hdr [headerLen]byte
			if _, err := io.ReadFull(r, hdr[:]); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return fmt.Errorf("wal compact header: %w", err)
			}
			id := ports.WALEntryID(binary.BigEndian.Uint64(hdr[0:8]))
			body := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
			if _, err := io.ReadFull(r, body); err != nil {
				return fmt.Errorf("wal compact body: %w", err)
			}
			if id <= w.committed {
				continue
			}
			if err := writeRecord(out, id, body); err != nil {
				return err
			}
			kept += int64(headerLen + len(body))
		}
		if err := out.Flush(); err != nil {
			return err
		}
		return tmp.Sync()
	}()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, logPath); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	_ = w.file.Close()
	w.file = f
	w.writer = bufio.NewWriterSize(f, 1<<20)
	w.sizeBytes = kept
	return nil
}

func (w *FileWAL) Stats() ports.WALStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ports.WALStats{
		OldestUncommitted: w.committed + 1,
		LatestAppended:    w.nextID,
		SizeBytes:         w.sizeBytes,
	}
}

var _ ports.WAL = (*FileWAL)(nil)

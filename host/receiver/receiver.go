// Package receiver turns the storage link stream from a recorder into
// files on the host, one per file_open/file_close pair, and announces
// each finished file.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"magpie/host/notify"
	"magpie/protocol"
	"magpie/storage"
	"magpie/wav"

	"github.com/google/uuid"
)

var ErrNoFile = errors.New("file operation with no open file")

// Recording is one received file.
type Recording struct {
	ID         uuid.UUID
	Name       string
	Path       string
	Bytes      uint32
	Header     wav.Attributes
	Valid      bool
	SeqGaps    uint32
	StartedAt  time.Time
	FinishedAt time.Time
}

// Receiver applies decoded commands to a FileSink.
type Receiver struct {
	device string
	sink   *storage.FileSink
	dec    *protocol.Decoder
	pub    notify.Publisher
	log    *slog.Logger
	now    func() time.Time

	current  *Recording
	gapsBase uint32
	done     []Recording
}

// New creates a receiver writing into dir. pub may be nil.
func New(dir, device string, pub notify.Publisher, log *slog.Logger) *Receiver {
	if pub == nil {
		pub = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Receiver{
		device: device,
		sink:   storage.NewFileSink(dir),
		pub:    pub,
		log:    log,
		now:    time.Now,
	}
	r.dec = protocol.NewDecoder(r.handle)
	return r
}

// Recordings lists the files finished so far.
func (r *Receiver) Recordings() []Recording {
	return r.done
}

// Stats exposes the link counters.
func (r *Receiver) Stats() protocol.Stats {
	return r.dec.Stats()
}

// Feed decodes p and applies whatever commands it completes.
func (r *Receiver) Feed(p []byte) error {
	r.dec.Feed(p)
	return r.dec.Err()
}

// Run reads src until EOF, a handler error or cancellation. Zero-length
// reads, which a serial port returns on its read timeout, are retried.
func (r *Receiver) Run(ctx context.Context, src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if ferr := r.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			if r.current != nil {
				r.log.Warn("stream ended with file open", "name", r.current.Name)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}
	}
}

func (r *Receiver) handle(cmd protocol.Command) error {
	switch cmd.ID {
	case protocol.CmdFileOpen:
		return r.open(cmd)
	case protocol.CmdFileSeek:
		if r.current == nil {
			return fmt.Errorf("seek: %w", ErrNoFile)
		}
		return r.sink.Seek(cmd.Offset)
	case protocol.CmdFileWrite:
		if r.current == nil {
			return fmt.Errorf("write: %w", ErrNoFile)
		}
		_, err := r.sink.Write(cmd.Data)
		return err
	case protocol.CmdFileClose:
		return r.close()
	}
	return fmt.Errorf("command %d: %w", cmd.ID, protocol.ErrUnknownCommand)
}

func (r *Receiver) open(cmd protocol.Command) error {
	if r.current != nil {
		// The device restarted mid-file; keep what arrived.
		r.log.Warn("file reopened before close", "previous", r.current.Name, "next", cmd.Name)
		if err := r.close(); err != nil {
			return err
		}
	}
	if err := r.sink.Open(cmd.Name, storage.Mode(cmd.Mode)); err != nil {
		return fmt.Errorf("open %s: %w", cmd.Name, err)
	}
	r.current = &Recording{
		ID:        uuid.New(),
		Name:      filepath.Base(cmd.Name),
		Path:      filepath.Join(r.sink.Dir(), filepath.Base(cmd.Name)),
		StartedAt: r.now(),
	}
	r.gapsBase = r.dec.Stats().SeqGaps
	r.log.Debug("receiving", "name", r.current.Name, "id", r.current.ID)
	return nil
}

func (r *Receiver) close() error {
	if r.current == nil {
		return fmt.Errorf("close: %w", ErrNoFile)
	}
	rec := r.current
	r.current = nil
	rec.Bytes = r.sink.Size()
	if err := r.sink.Close(); err != nil {
		return fmt.Errorf("close %s: %w", rec.Name, err)
	}
	rec.FinishedAt = r.now()
	rec.SeqGaps = r.dec.Stats().SeqGaps - r.gapsBase
	rec.Header, rec.Valid = verify(rec.Path, rec.Bytes)

	r.done = append(r.done, *rec)
	attrs := []any{"name", rec.Name, "bytes", rec.Bytes, "valid", rec.Valid}
	if rec.SeqGaps > 0 {
		r.log.Warn("file received with missing frames", append(attrs, "gaps", rec.SeqGaps)...)
	} else {
		r.log.Info("file received", attrs...)
	}

	err := r.pub.Publish(notify.Event{
		ID:         rec.ID.String(),
		Device:     r.device,
		Name:       rec.Name,
		Path:       rec.Path,
		Bytes:      rec.Bytes,
		SampleRate: uint32(rec.Header.SampleRate),
		BitDepth:   uint8(rec.Header.BitsPerSample),
		Channels:   rec.Header.NumChannels,
		Valid:      rec.Valid,
		SeqGaps:    rec.SeqGaps,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	})
	if err != nil {
		// Losing an event must not stop reception.
		r.log.Error("publish failed", "name", rec.Name, "error", err)
	}
	return nil
}

// verify reads back the header of a finished file. A file whose
// recording aborted has no header and is reported invalid.
func verify(path string, size uint32) (wav.Attributes, bool) {
	f, err := os.Open(path)
	if err != nil {
		return wav.Attributes{}, false
	}
	defer f.Close()

	var hdr [wav.Length]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return wav.Attributes{}, false
	}
	attrs, err := wav.Parse(hdr[:])
	if err != nil {
		return wav.Attributes{}, false
	}
	return attrs, attrs.FileLength == size
}

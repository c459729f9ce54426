package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"magpie/protocol"
)

// exercise runs the recorder's access pattern against a sink: skip the
// header, write the body, go back and fill the header in.
func exercise(t *testing.T, s Sink, name string) {
	t.Helper()
	if err := s.Open(name, ModeCreate); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Seek(4); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := s.Write([]byte("body")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Write([]byte("!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := s.Size(); got != 9 {
		t.Errorf("Size = %d, want 9", got)
	}
	if err := s.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := s.Write([]byte("HDR:")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := s.Size(); got != 9 {
		t.Errorf("Size after header = %d, want 9", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

const wantFile = "HDR:body!"

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)
	exercise(t, s, "a.wav")

	got, err := os.ReadFile(filepath.Join(dir, "a.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != wantFile {
		t.Errorf("file = %q, want %q", got, wantFile)
	}

	// Truncates on re-create.
	if err := s.Open("a.wav", ModeCreate); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 0 {
		t.Errorf("Size after truncate = %d", s.Size())
	}
	s.Close()
}

func TestFileSinkStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)
	exercise(t, s, "../../escape.wav")
	if _, err := os.Stat(filepath.Join(dir, "escape.wav")); err != nil {
		t.Errorf("file not created inside sink dir: %v", err)
	}
}

func TestMemSink(t *testing.T) {
	s := NewMemSink()
	exercise(t, s, "m.wav")

	got, ok := s.File("m.wav")
	if !ok || string(got) != wantFile {
		t.Errorf("file = %q, %v", got, ok)
	}
	if len(s.Writes) != 3 || s.Writes[0] != 4 || s.Writes[1] != 1 {
		t.Errorf("Writes = %v", s.Writes)
	}
	if s.IsOpen() {
		t.Error("still open after Close")
	}
}

func TestMemSinkFailAfter(t *testing.T) {
	tests := []struct {
		name  string
		op    Op
		after int
	}{
		{"open", OpOpen, 0},
		{"first seek", OpSeek, 0},
		{"second write", OpWrite, 1},
		{"header seek", OpSeek, 1},
		{"close", OpClose, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemSink()
			diskFull := errors.New("disk full")
			s.FailAfter(tt.op, tt.after, diskFull)

			var err error
			steps := []func() error{
				func() error { return s.Open("f", ModeCreate) },
				func() error { return s.Seek(4) },
				func() error { _, err := s.Write([]byte("a")); return err },
				func() error { _, err := s.Write([]byte("b")); return err },
				func() error { return s.Seek(0) },
				func() error { return s.Close() },
			}
			for _, step := range steps {
				if err = step(); err != nil {
					break
				}
			}
			if !errors.Is(err, diskFull) {
				t.Errorf("err = %v, want injected failure", err)
			}
		})
	}
}

func TestSinkStateErrors(t *testing.T) {
	sinks := map[string]Sink{
		"mem":  NewMemSink(),
		"file": NewFileSink(t.TempDir()),
		"link": NewLinkSink(&bytes.Buffer{}),
	}
	for name, s := range sinks {
		t.Run(name, func(t *testing.T) {
			if err := s.Seek(0); !errors.Is(err, ErrNotOpen) {
				t.Errorf("Seek before Open: %v", err)
			}
			if _, err := s.Write([]byte{1}); !errors.Is(err, ErrNotOpen) {
				t.Errorf("Write before Open: %v", err)
			}
			if err := s.Close(); !errors.Is(err, ErrNotOpen) {
				t.Errorf("Close before Open: %v", err)
			}
			if err := s.Open("x", ModeCreate); err != nil {
				t.Fatal(err)
			}
			if err := s.Open("y", ModeCreate); !errors.Is(err, ErrAlreadyOpen) {
				t.Errorf("second Open: %v", err)
			}
			s.Close()
		})
	}
}

func TestLinkSinkReplaysOnHost(t *testing.T) {
	var stream bytes.Buffer
	s := NewLinkSink(&stream)
	exercise(t, s, "l.wav")

	// Apply the decoded operations to a MemSink as the host receiver would.
	host := NewMemSink()
	dec := protocol.NewDecoder(func(cmd protocol.Command) error {
		switch cmd.ID {
		case protocol.CmdFileOpen:
			return host.Open(cmd.Name, Mode(cmd.Mode))
		case protocol.CmdFileSeek:
			return host.Seek(cmd.Offset)
		case protocol.CmdFileWrite:
			_, err := host.Write(cmd.Data)
			return err
		case protocol.CmdFileClose:
			return host.Close()
		}
		return nil
	})
	dec.Feed(stream.Bytes())
	if err := dec.Err(); err != nil {
		t.Fatal(err)
	}
	got, ok := host.File("l.wav")
	if !ok || string(got) != wantFile {
		t.Errorf("host file = %q, %v", got, ok)
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("usb disconnected")
}

func TestLinkSinkWriteError(t *testing.T) {
	s := NewLinkSink(failWriter{})
	if err := s.Open("x", ModeCreate); err == nil {
		t.Fatal("Open over a dead link should fail")
	}
}

package protocol

import "errors"

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler receives each decoded command in stream order.
type CommandHandler func(cmd Command) error

// Stats counts what the decoder has seen since creation.
type Stats struct {
	Frames    uint32 // frames accepted
	CRCErrors uint32 // frames dropped on a bad CRC or framing
	SeqGaps   uint32 // accepted frames whose sequence skipped ahead
	Resyncs   uint32 // times the decoder hunted for a sync byte
}

// Decoder is the host side of the link. There is no retransmission:
// a missing frame shows up as a sequence gap and the caller decides what
// that means for the file being written.
type Decoder struct {
	synchronized bool
	haveSeq      bool
	expected     uint8
	handler      CommandHandler
	fifo         *FifoBuffer
	stats        Stats
	lastErr      error
}

// NewDecoder creates a decoder that dispatches to handler.
func NewDecoder(handler CommandHandler) *Decoder {
	return &Decoder{
		synchronized: true,
		handler:      handler,
		fifo:         NewFifoBuffer(4 * FrameMax),
	}
}

// Stats returns a snapshot of the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Err returns the first handler error, if any. Decoding stops
// dispatching after a handler fails.
func (d *Decoder) Err() error {
	return d.lastErr
}

// Feed accepts raw bytes from the stream in any split.
func (d *Decoder) Feed(p []byte) {
	for len(p) > 0 {
		n := d.fifo.Write(p)
		p = p[n:]
		d.Receive(d.fifo)
		if n == 0 && d.fifo.Free() == 0 {
			// A full buffer with no frame in it is garbage.
			d.fifo.Reset()
			d.synchronized = false
		}
	}
}

// Receive parses as many complete frames as input holds and pops them.
// A partial frame is left in place for the next call.
func (d *Decoder) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == FrameValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.synchronized = true
			continue
		}

		if data[0] == FrameValueSync {
			data = data[1:]
			continue
		}
		if len(data) < FrameOverhead {
			break
		}

		frameLen := int(data[FramePositionLenHi])<<8 | int(data[FramePositionLenLo])
		seq := data[FramePositionSeq]
		if frameLen < FrameOverhead || frameLen > FrameMax || seq&^FrameSeqMask != FrameDest {
			d.desync()
			continue
		}
		if len(data) < frameLen {
			break
		}
		if data[frameLen-FrameTrailerSync] != FrameValueSync {
			d.desync()
			continue
		}
		frameCRC := uint16(data[frameLen-FrameTrailerCRC])<<8 |
			uint16(data[frameLen-FrameTrailerCRC+1])
		if frameCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
			d.desync()
			continue
		}

		payload := data[FrameHeaderSize : frameLen-FrameTrailerSize]
		data = data[frameLen:]
		d.accept(seq & FrameSeqMask)
		d.parsePayload(payload)
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (d *Decoder) desync() {
	d.synchronized = false
	d.stats.CRCErrors++
	d.stats.Resyncs++
}

func (d *Decoder) accept(seq uint8) {
	d.stats.Frames++
	if d.haveSeq && seq != d.expected && seq != 0 {
		d.stats.SeqGaps++
	}
	d.haveSeq = true
	d.expected = (seq + 1) & FrameSeqMask
}

func (d *Decoder) parsePayload(payload []byte) {
	for len(payload) > 0 && d.lastErr == nil {
		cmd, err := decodeCommand(&payload)
		if err != nil {
			d.lastErr = err
			return
		}
		if d.handler != nil {
			if err := d.handler(cmd); err != nil {
				d.lastErr = err
				return
			}
		}
	}
}

func decodeCommand(payload *[]byte) (Command, error) {
	id, err := DecodeVLQUint(payload)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{ID: CommandID(id)}
	switch cmd.ID {
	case CmdFileOpen:
		if cmd.Name, err = DecodeVLQString(payload); err != nil {
			return cmd, err
		}
		cmd.Mode, err = DecodeVLQUint(payload)
	case CmdFileSeek:
		cmd.Offset, err = DecodeVLQUint(payload)
	case CmdFileWrite:
		cmd.Data, err = DecodeVLQBytes(payload)
	case CmdFileClose:
	default:
		return cmd, ErrUnknownCommand
	}
	return cmd, err
}

// Package protocol implements the storage link: file operations framed
// for a byte stream between the recorder and a host that owns the disk.
//
// A frame is
//
//	len_hi len_lo seq payload... crc_hi crc_lo 0x7E
//
// where len counts the whole frame, seq is 0x10|n with n a 4-bit counter
// and the CRC covers everything before it. A payload holds one or more
// commands, each a VLQ command id followed by its VLQ-encoded arguments.
package protocol

const (
	FrameHeaderSize  = 3
	FrameTrailerSize = 3
	FrameOverhead    = FrameHeaderSize + FrameTrailerSize
	FrameMax         = 1024

	FramePositionLenHi = 0
	FramePositionLenLo = 1
	FramePositionSeq   = 2
	FrameTrailerCRC    = 3
	FrameTrailerSync   = 1

	FrameValueSync = 0x7E
	FrameDest      = 0x10
	FrameSeqMask   = 0x0F
)

// MaxWriteChunk is the most file data a single write command carries: a
// frame less the command id and a worst-case length prefix.
const MaxWriteChunk = FrameMax - FrameOverhead - 1 - 2

// MaxNameLength bounds file names so an open always fits in one frame.
const MaxNameLength = 200

// CommandID identifies a file operation.
type CommandID uint8

const (
	CmdFileOpen  CommandID = 1
	CmdFileSeek  CommandID = 2
	CmdFileWrite CommandID = 3
	CmdFileClose CommandID = 4
)

func (c CommandID) String() string {
	switch c {
	case CmdFileOpen:
		return "file_open"
	case CmdFileSeek:
		return "file_seek"
	case CmdFileWrite:
		return "file_write"
	case CmdFileClose:
		return "file_close"
	default:
		return "unknown"
	}
}

// OpenMode flags carried by file_open.
const (
	ModeCreate uint32 = 1 << 0 // create or truncate, then write
)

// Command is one decoded file operation. Data aliases the decoder's
// input and is only valid for the duration of the handler call.
type Command struct {
	ID     CommandID
	Name   string
	Mode   uint32
	Offset uint32
	Data   []byte
}

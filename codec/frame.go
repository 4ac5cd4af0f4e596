package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"

	"holdem-autopilot/engine"
)

// FrameKind says what a frame carries.
type FrameKind uint8

const (
	FrameUnknown FrameKind = iota
	// client -> table
	FrameCapture
	FrameCommand
	// table -> client
	FrameSnapshot
	FrameAck
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameCapture:
		return "capture"
	case FrameCommand:
		return "command"
	case FrameSnapshot:
		return "snapshot"
	case FrameAck:
		return "ack"
	case FrameError:
		return "error"
	}
	return "unknown"
}

// Error codes carried by FrameError.
const (
	CodeBadFrame    int32 = 1
	CodeOutOfTurn   int32 = 2
	CodeHandEnded   int32 = 3
	CodeUnsupported int32 = 4
	CodeInternal    int32 = 5
)

// Frame is one websocket message. Replies echo the request's Seq.
type Frame struct {
	Seq      uint64
	Kind     FrameKind
	Table    string
	Snapshot engine.Snapshot // FrameSnapshot
	Command  engine.Command  // FrameCommand
	Code     int32           // FrameError
	Message  string          // FrameError
	SentAt   time.Time
}

const (
	frameSeq      protowire.Number = 1
	frameKind     protowire.Number = 2
	frameTable    protowire.Number = 3
	frameSnapshot protowire.Number = 4
	frameCommand  protowire.Number = 5
	frameCode     protowire.Number = 6
	frameMessage  protowire.Number = 7
	frameSentAt   protowire.Number = 8
)

const (
	commandKind    protowire.Number = 1
	commandEdge    protowire.Number = 2
	commandAmount  protowire.Number = 3
	commandMinBet  protowire.Number = 4
	commandTimeout protowire.Number = 5
	commandMethod  protowire.Number = 6
)

func MarshalFrame(f Frame) ([]byte, error) {
	var b []byte
	b = appendUint(b, frameSeq, f.Seq)
	b = appendUint(b, frameKind, uint64(f.Kind))
	b = appendString(b, frameTable, f.Table)
	switch f.Kind {
	case FrameSnapshot:
		s, err := MarshalSnapshot(f.Snapshot)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, frameSnapshot, protowire.BytesType)
		b = protowire.AppendBytes(b, s)
	case FrameCommand:
		c, err := marshalCommand(f.Command)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, frameCommand, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	case FrameError:
		b = appendSint(b, frameCode, int64(f.Code))
		b = appendString(b, frameMessage, f.Message)
	}
	if !f.SentAt.IsZero() {
		b = appendSint(b, frameSentAt, f.SentAt.UnixMilli())
	}
	return b, nil
}

func UnmarshalFrame(b []byte) (Frame, error) {
	var f Frame
	err := walk(b, "frame", func(num protowire.Number, v uint64, raw []byte) error {
		var err error
		switch num {
		case frameSeq:
			f.Seq = v
		case frameKind:
			f.Kind = FrameKind(v)
		case frameTable:
			f.Table = string(raw)
		case frameSnapshot:
			f.Snapshot, err = UnmarshalSnapshot(raw)
		case frameCommand:
			f.Command, err = unmarshalCommand(raw)
		case frameCode:
			f.Code = int32(protowire.DecodeZigZag(v))
		case frameMessage:
			f.Message = string(raw)
		case frameSentAt:
			f.SentAt = time.UnixMilli(protowire.DecodeZigZag(v))
		}
		return err
	})
	if err != nil {
		return Frame{}, err
	}
	if f.Kind == FrameUnknown || f.Kind > FrameError {
		return Frame{}, fmt.Errorf("codec: frame kind %d", f.Kind)
	}
	return f, nil
}

func marshalCommand(c engine.Command) ([]byte, error) {
	var b []byte
	b = appendUint(b, commandKind, uint64(c.Kind))
	b = appendString(b, commandEdge, c.Edge)
	b = appendSint(b, commandAmount, c.Amount)
	b = appendSint(b, commandMinBet, c.MinBet)
	if c.Timeout > 0 {
		d, err := proto.Marshal(durationpb.New(c.Timeout))
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, commandTimeout, protowire.BytesType)
		b = protowire.AppendBytes(b, d)
	}
	b = appendUint(b, commandMethod, uint64(c.Method))
	return b, nil
}

func unmarshalCommand(b []byte) (engine.Command, error) {
	var c engine.Command
	err := walk(b, "command", func(num protowire.Number, v uint64, raw []byte) error {
		switch num {
		case commandKind:
			c.Kind = engine.CommandKind(v)
		case commandEdge:
			c.Edge = string(raw)
		case commandAmount:
			c.Amount = protowire.DecodeZigZag(v)
		case commandMinBet:
			c.MinBet = protowire.DecodeZigZag(v)
		case commandTimeout:
			var d durationpb.Duration
			if err := proto.Unmarshal(raw, &d); err != nil {
				return fmt.Errorf("codec: command timeout: %w", err)
			}
			c.Timeout = d.AsDuration()
		case commandMethod:
			c.Method = engine.BetMethod(v)
		}
		return nil
	})
	return c, err
}

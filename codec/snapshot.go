// Package codec is the binary form of snapshots and commands, shared by the
// journal payloads and the remote table frames. Everything is protobuf wire
// format, so a .proto description can be written for other clients later.
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"holdem-autopilot/card"
	"holdem-autopilot/engine"
)

// snapshot field numbers
const (
	fieldPot     protowire.Number = 1
	fieldBet0    protowire.Number = 2
	fieldBet1    protowire.Number = 3
	fieldStack   protowire.Number = 4
	fieldFlags   protowire.Number = 5
	fieldButtons protowire.Number = 6
	fieldHole    protowire.Number = 7
	fieldBoard   protowire.Number = 8
	fieldTakenAt protowire.Number = 9
)

// flag bits
const (
	flagDealer0 = 1 << iota
	flagDealer1
	flagAllIn0
	flagAllIn1
	flagSitOut0
	flagSitOut1
	flagHighlight0
	flagHighlight1
	flagWaiting
)

func MarshalSnapshot(s engine.Snapshot) ([]byte, error) {
	var b []byte
	for _, f := range []struct {
		num protowire.Number
		v   int64
	}{{fieldPot, s.TotalPot}, {fieldBet0, s.Bet[0]}, {fieldBet1, s.Bet[1]}, {fieldStack, s.Stack}} {
		b = appendSint(b, f.num, f.v)
	}
	b = appendUint(b, fieldFlags, packFlags(s))
	b = appendUint(b, fieldButtons, uint64(s.Buttons))
	b = protowire.AppendTag(b, fieldHole, protowire.BytesType)
	b = protowire.AppendBytes(b, cardBytes(s.Hole[:]))
	b = protowire.AppendTag(b, fieldBoard, protowire.BytesType)
	b = protowire.AppendBytes(b, cardBytes(s.Board[:]))
	if !s.TakenAt.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(s.TakenAt))
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldTakenAt, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

func UnmarshalSnapshot(b []byte) (engine.Snapshot, error) {
	var s engine.Snapshot
	err := walk(b, "snapshot", func(num protowire.Number, v uint64, raw []byte) error {
		switch num {
		case fieldPot:
			s.TotalPot = protowire.DecodeZigZag(v)
		case fieldBet0:
			s.Bet[0] = protowire.DecodeZigZag(v)
		case fieldBet1:
			s.Bet[1] = protowire.DecodeZigZag(v)
		case fieldStack:
			s.Stack = protowire.DecodeZigZag(v)
		case fieldFlags:
			unpackFlags(&s, v)
		case fieldButtons:
			s.Buttons = engine.Buttons(v)
		case fieldHole:
			copyCards(s.Hole[:], raw)
		case fieldBoard:
			copyCards(s.Board[:], raw)
		case fieldTakenAt:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(raw, &ts); err != nil {
				return fmt.Errorf("codec: snapshot taken_at: %w", err)
			}
			s.TakenAt = ts.AsTime()
		}
		return nil
	})
	return s, err
}

// walk visits every varint and bytes field of a message. Other wire types
// are skipped.
func walk(b []byte, what string, fn func(num protowire.Number, v uint64, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("codec: %s: %w", what, protowire.ParseError(n))
		}
		b = b[n:]
		var (
			v   uint64
			raw []byte
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n >= 0 {
				b = b[n:]
				continue
			}
		}
		if n < 0 {
			return fmt.Errorf("codec: %s field %d: %w", what, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, v, raw); err != nil {
			return err
		}
	}
	return nil
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	return appendUint(b, num, protowire.EncodeZigZag(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func packFlags(s engine.Snapshot) uint64 {
	var f uint64
	set := func(on bool, bit uint64) {
		if on {
			f |= bit
		}
	}
	set(s.Dealer[0], flagDealer0)
	set(s.Dealer[1], flagDealer1)
	set(s.AllIn[0], flagAllIn0)
	set(s.AllIn[1], flagAllIn1)
	set(s.SitOut[0], flagSitOut0)
	set(s.SitOut[1], flagSitOut1)
	set(s.Highlight[0], flagHighlight0)
	set(s.Highlight[1], flagHighlight1)
	set(s.Waiting, flagWaiting)
	return f
}

func unpackFlags(s *engine.Snapshot, f uint64) {
	s.Dealer = [2]bool{f&flagDealer0 != 0, f&flagDealer1 != 0}
	s.AllIn = [2]bool{f&flagAllIn0 != 0, f&flagAllIn1 != 0}
	s.SitOut = [2]bool{f&flagSitOut0 != 0, f&flagSitOut1 != 0}
	s.Highlight = [2]bool{f&flagHighlight0 != 0, f&flagHighlight1 != 0}
	s.Waiting = f&flagWaiting != 0
}

func cardBytes(cards []card.Card) []byte {
	out := make([]byte, len(cards))
	for i, c := range cards {
		out[i] = byte(c)
	}
	return out
}

func copyCards(dst []card.Card, src []byte) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] = card.Card(src[i])
	}
}

package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for decode failures. Use errors.Is against a *DecodeError.
var (
	ErrUnknownControlCode = errors.New("unknown control code")
	ErrUnrecognizedFrame  = errors.New("unrecognized frame")
)

// DecodeError describes a notification payload that is not a Device Event.
type DecodeError struct {
	Kind  error  // ErrUnknownControlCode or ErrUnrecognizedFrame
	Code  byte   // control code, set for ErrUnknownControlCode
	Frame []byte // copy of the offending payload
}

func (e *DecodeError) Error() string {
	if e.Kind == ErrUnknownControlCode {
		return fmt.Sprintf("%v 0x%02x", e.Kind, e.Code)
	}
	return fmt.Sprintf("%v: %d bytes [% x]", e.Kind, len(e.Frame), e.Frame)
}

// Is lets errors.Is match the Kind sentinel.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

// Decode maps a raw notification payload to an Event.
// Format:
//
//	[1 byte]  control code
//	  0x00: menu opened
//	  0x7F: menu closed
//	[2 bytes] command letter + option id
//	  byte 0: 'S' (0x53) focus moved, 'A' (0x41) option confirmed
//	  byte 1: option id (0-255, not range checked)
//
// Any other payload yields a *DecodeError. Decode never panics.
func Decode(data []byte) (Event, error) {
	switch len(data) {
	case 1:
		switch data[0] {
		case CodeMenuOpened:
			return MenuOpened{}, nil
		case CodeMenuClosed:
			return MenuClosed{}, nil
		}
		return nil, &DecodeError{Kind: ErrUnknownControlCode, Code: data[0], Frame: clone(data)}
	case 2:
		id := int(data[1])
		switch data[0] {
		case CommandFocus:
			return FocusMoved{OptionID: id}, nil
		case CommandConfirm:
			return OptionConfirmed{OptionID: id}, nil
		}
	}
	return nil, &DecodeError{Kind: ErrUnrecognizedFrame, Frame: clone(data)}
}

// Encode is the inverse of Decode. Option ids must fit in one byte.
func Encode(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case MenuOpened:
		return []byte{CodeMenuOpened}, nil
	case MenuClosed:
		return []byte{CodeMenuClosed}, nil
	case FocusMoved:
		return encodeCommand(CommandFocus, e.OptionID)
	case OptionConfirmed:
		return encodeCommand(CommandConfirm, e.OptionID)
	}
	return nil, fmt.Errorf("cannot encode event %T", ev)
}

func encodeCommand(cmd byte, id int) ([]byte, error) {
	if id < 0 || id > 0xFF {
		return nil, fmt.Errorf("option id %d out of range 0-255", id)
	}
	return []byte{cmd, byte(id)}, nil
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

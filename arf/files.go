// Package arf reads the PKCS#15 Access Rule File structure GlobalPlatform
// defines as the UICC alternative to ARA-M (§4.6): EF(DIR) -> EF(ODF) ->
// EF(DODF) -> ACMF -> ACRF -> ACCF, feeding the same access-rule cache the
// ARA-M driver populates.
package arf

import (
	"ace/errs"
	"ace/terminal"
)

// PKCS15Aid is the fallback application identifier for the PKCS#15
// application, used when EF(DIR) does not carry a usable PATH.
var PKCS15Aid = []byte{0xA0, 0x00, 0x00, 0x00, 0x63, 0x50, 0x4B, 0x43, 0x53, 0x2D, 0x31, 0x35}

const (
	fidMF  = 0x3F00
	fidDIR = 0x2F00
	fidODF = 0x5031

	claISO        = 0x00
	insSelect     = 0xA4
	insReadBinary = 0xB0
)

// FileAccess is a small channel-state machine over a terminal.Terminal: it
// tracks which file is currently selected so ACMF/ACRF/ACCF path hops only
// reselect what actually changed.
type FileAccess struct {
	term      terminal.Terminal
	channel   byte
	isUICC    bool
	currentID uint16
}

// Open opens a logical channel for PKCS#15 access without selecting any
// application. Walk then navigates EF(DIR), falling back to selecting the
// PKCS#15 AID directly.
func Open(term terminal.Terminal) (*FileAccess, error) {
	channel, _, err := term.OpenLogicalChannel(nil, 0x00)
	if err != nil {
		return nil, err
	}
	fa := &FileAccess{
		term:    term,
		channel: channel,
		isUICC:  terminal.IsUICC(term.TerminalName()),
	}
	return fa, nil
}

// Close releases the logical channel.
func (fa *FileAccess) Close() error {
	return fa.term.CloseLogicalChannel(fa.channel)
}

// SelectAID selects a DF by AID (used for the PKCS#15-by-AID fallback).
func (fa *FileAccess) SelectAID(aid []byte) error {
	cmd := append([]byte{claISO, insSelect, 0x04, 0x0C, byte(len(aid))}, aid...)
	cmd = append(cmd, 0x00)
	resp, err := fa.term.Transmit(fa.channel, cmd)
	if err != nil {
		return err
	}
	return checkSW(resp, "SELECT AID")
}

// SelectFID selects a single 2-byte file identifier relative to the
// currently selected DF.
func (fa *FileAccess) SelectFID(fid uint16) error {
	if fa.currentID == fid {
		return nil
	}
	data := []byte{byte(fid >> 8), byte(fid)}
	cmd := append([]byte{claISO, insSelect, 0x00, 0x0C, byte(len(data))}, data...)
	resp, err := fa.term.Transmit(fa.channel, cmd)
	if err != nil {
		return err
	}
	if err := checkSW(resp, "SELECT FID"); err != nil {
		return err
	}
	fa.currentID = fid
	return nil
}

// SelectPath walks a path of 2-byte FIDs from the current DF, selecting
// each hop in turn, matching §4.6's "small channel-state machine".
func (fa *FileAccess) SelectPath(path []uint16) error {
	for _, fid := range path {
		if err := fa.SelectFID(fid); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile selects fid and reads its full transparent content, using
// simIOExchange when the terminal is a UICC and plain READ BINARY
// otherwise, per §4.6.
func (fa *FileAccess) ReadFile(fid uint16) ([]byte, error) {
	if fa.isUICC {
		data, err := fa.term.SimIOExchange(fid, "", []byte{claISO, insReadBinary, 0x00, 0x00, 0x00})
		if err == nil {
			return data, nil
		}
		if !errs.IsMissingResource(err) {
			return nil, err
		}
		// terminal doesn't support the SIM-IO shortcut: fall through to
		// SELECT + READ BINARY.
	}
	if err := fa.SelectFID(fid); err != nil {
		return nil, err
	}
	return fa.readBinaryAll()
}

func (fa *FileAccess) readBinaryAll() ([]byte, error) {
	var out []byte
	const chunk = 0xE0
	offset := 0
	for {
		p1 := byte(offset >> 8)
		p2 := byte(offset)
		cmd := []byte{claISO, insReadBinary, p1, p2, chunk}
		resp, err := fa.term.Transmit(fa.channel, cmd)
		if err != nil {
			return nil, err
		}
		if len(resp) < 2 {
			return nil, errs.Io("READ BINARY short response", nil)
		}
		sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
		body := resp[:len(resp)-2]
		out = append(out, body...)
		switch sw {
		case 0x9000:
			if len(body) < chunk {
				return out, nil
			}
			offset += len(body)
		case 0x6A82:
			return nil, errs.NoSuchElement("EF not found (SW=6A82)")
		case 0x6B00:
			// offset beyond EOF: end of file reached on a prior short read.
			return out, nil
		default:
			return nil, errs.Card(sw)
		}
	}
}

func checkSW(resp []byte, what string) error {
	if len(resp) < 2 {
		return errs.Io(what+": short response", nil)
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	switch sw {
	case 0x9000:
		return nil
	case 0x6A82:
		return errs.NoSuchElement("%s: not present (SW=6A82)", what)
	default:
		return errs.Card(sw)
	}
}

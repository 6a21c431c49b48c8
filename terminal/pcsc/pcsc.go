// Package pcsc adapts a PC/SC smart-card reader to the terminal.Terminal
// interface, for testing the ACE against a physical UICC/SIM or a
// smart-card-shaped SE through a standard reader.
package pcsc

import (
	"fmt"

	"github.com/ebfe/scard"

	"ace/apdu"
	"ace/errs"
)

// Terminal is a terminal.Terminal backed by a single PC/SC card connection.
// Logical-channel management is done with MANAGE CHANNEL APDUs against the
// basic channel, matching how real UICCs expose multiplexed channels over
// one physical PC/SC session.
type Terminal struct {
	ctx  *scard.Context
	card *scard.Card
	name string
	atr  []byte
}

// ListReaders returns the names of every PC/SC reader currently attached,
// for the CLI's "readers" command.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, errs.Io("establish PC/SC context", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, errs.Io("list PC/SC readers", err)
	}
	return readers, nil
}

// Open establishes a PC/SC context and connects to the first listed reader,
// without checking whether it holds a card. name, if non-empty, pins a
// specific reader instead.
func Open(name string) (*Terminal, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, errs.Io("establish PC/SC context", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, errs.Io("list PC/SC readers", err)
	}
	if len(readers) == 0 {
		ctx.Release()
		return nil, errs.NoSuchElement("no PC/SC readers found")
	}

	target := readers[0]
	if name != "" {
		found := false
		for _, r := range readers {
			if r == name {
				target = r
				found = true
				break
			}
		}
		if !found {
			ctx.Release()
			return nil, errs.NoSuchElement("reader %q not found", name)
		}
	}

	card, err := ctx.Connect(target, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, errs.Io(fmt.Sprintf("connect to reader %q", target), err)
	}

	status, err := card.Status()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		ctx.Release()
		return nil, errs.Io("read card status", err)
	}

	return &Terminal{ctx: ctx, card: card, name: target, atr: status.Atr}, nil
}

// Close releases the card connection and PC/SC context.
func (t *Terminal) Close() error {
	if t.card != nil {
		t.card.Disconnect(scard.LeaveCard)
	}
	if t.ctx != nil {
		t.ctx.Release()
	}
	return nil
}

// OpenLogicalChannel issues MANAGE CHANNEL [Open] followed by a SELECT of
// aid (if given) on the newly assigned channel.
func (t *Terminal) OpenLogicalChannel(aid []byte, p2 byte) (byte, []byte, error) {
	resp, err := t.rawTransmit([]byte{0x00, 0x70, 0x00, 0x00, 0x01})
	if err != nil {
		return 0, nil, err
	}
	if len(resp) < 3 {
		return 0, nil, errs.Io("MANAGE CHANNEL [Open] short response", nil)
	}
	sw := sw16(resp)
	if sw == 0x6A81 || sw == 0x6881 {
		return 0, nil, errs.MissingResource("no logical channel available: SW=%04X", sw)
	}
	if sw != 0x9000 {
		return 0, nil, errs.Card(sw)
	}
	channel := resp[0]

	if len(aid) == 0 {
		return channel, nil, nil
	}

	cla := apdu.SetChannelNumber(0x00, int(channel))
	selectApdu := append([]byte{cla, 0xA4, 0x04, p2, byte(len(aid))}, aid...)
	selectApdu = append(selectApdu, 0x00)

	selResp, err := t.rawTransmit(selectApdu)
	if err != nil {
		return 0, nil, err
	}
	selSW := sw16(selResp)
	if selSW == 0x6A82 {
		return 0, nil, errs.NoSuchElement("SELECT AID: applet not present (SW=6A82)")
	}
	if selSW != 0x9000 {
		return 0, nil, errs.Card(selSW)
	}
	return channel, selResp[:len(selResp)-2], nil
}

// CloseLogicalChannel issues MANAGE CHANNEL [Close] for channel.
func (t *Terminal) CloseLogicalChannel(channel byte) error {
	cla := apdu.SetChannelNumber(0x00, int(channel))
	resp, err := t.rawTransmit([]byte{cla, 0x70, 0x80, channel})
	if err != nil {
		return err
	}
	if sw16(resp) != 0x9000 {
		return errs.Card(sw16(resp))
	}
	return nil
}

// Transmit sends apdu unchanged on the given channel. Callers are
// responsible for stamping the channel number into CLA beforehand; this
// adapter does not rewrite it, matching the thin pass-through the driver
// packages expect.
func (t *Terminal) Transmit(channel byte, apdu []byte) ([]byte, error) {
	return t.rawTransmit(apdu)
}

// SimIOExchange is not supported over a generic PC/SC reader.
func (t *Terminal) SimIOExchange(fileID uint16, path string, cmd []byte) ([]byte, error) {
	return nil, errs.MissingResource("sim IO exchange not supported on PC/SC terminal")
}

func (t *Terminal) GetATR() ([]byte, bool) {
	if len(t.atr) == 0 {
		return nil, false
	}
	return t.atr, true
}

func (t *Terminal) IsCardPresent() bool {
	_, err := t.card.Status()
	return err == nil
}

func (t *Terminal) TerminalName() string { return t.name }

func (t *Terminal) rawTransmit(apdu []byte) ([]byte, error) {
	resp, err := t.card.Transmit(apdu)
	if err != nil {
		return nil, errs.Io("PC/SC transmit", err)
	}
	return resp, nil
}

func sw16(resp []byte) uint16 {
	if len(resp) < 2 {
		return 0
	}
	n := len(resp)
	return uint16(resp[n-2])<<8 | uint16(resp[n-1])
}

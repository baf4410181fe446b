//go:build !tinygo && unix

package hal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// terminalKeyboard reads raw stdin and replays each key as a boot keyboard
// press followed by a release, since a terminal reports no key-up.
type terminalKeyboard struct {
	usb *virtualUSB
	log Logger
	h   HIDHandle
}

func newTerminalKeyboard(usb *virtualUSB, log Logger) *terminalKeyboard {
	return &terminalKeyboard{usb: usb, log: log}
}

// run blocks until ctx is done or Ctrl+C is read. It returns nil if stdin is
// not a terminal.
func (k *terminalKeyboard) run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		k.log.WriteLineString("terminal: stdin is not a terminal, keyboard disabled")
		return nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("terminal: raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("terminal: nonblocking stdin: %w", err)
	}
	defer syscall.SetNonblock(fd, false)

	k.h = k.usb.connect(HIDSubclassBoot, HIDProtocolKeyboard)
	defer k.usb.disconnect(k.h)

	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := syscall.Read(fd, buf)
		if n > 0 {
			if bytes.IndexByte(buf[:n], 0x03) >= 0 {
				return context.Canceled
			}
			for _, s := range terminalStrokes(buf[:n]) {
				k.stroke(s)
			}
			continue
		}
		if err != nil && err != syscall.EAGAIN && err != syscall.EWOULDBLOCK {
			return fmt.Errorf("terminal: read: %w", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (k *terminalKeyboard) stroke(s keyStroke) {
	k.usb.report(k.h, bootKeyboardReport(s.mod, []uint8{s.usage}))
	k.usb.report(k.h, bootKeyboardReport(0, nil))
}

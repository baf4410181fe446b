//go:build !tinygo && !unix

package hal

import "context"

type terminalKeyboard struct {
	log Logger
}

func newTerminalKeyboard(_ *virtualUSB, log Logger) *terminalKeyboard {
	return &terminalKeyboard{log: log}
}

func (k *terminalKeyboard) run(ctx context.Context) error {
	k.log.WriteLineString("terminal: raw keyboard not supported on this host")
	return nil
}

//go:build tinygo

package main

import (
	"nesport/app"
	"nesport/hal"
)

func main() {
	app.Run(hal.New(), app.DefaultConfig())
}

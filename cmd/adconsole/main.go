package main

import (
	"github.com/awnumar/memguard"

	"github.com/jmcleod/adconsole/cmd/adconsole/cmd"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	cmd.Execute()
}

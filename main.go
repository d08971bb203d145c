package main

import (
	"LoudGate/cmd"
)

func main() {
	cmd.Execute()
}

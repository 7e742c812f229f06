package main

import (
	"github.com/ColonelBlimp/gocw/cmd"
	"github.com/ColonelBlimp/gocw/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}

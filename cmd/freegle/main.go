package main

import "freegle/internal/cmd"

func main() {
	cmd.Run()
}

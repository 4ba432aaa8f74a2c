package main

import "libkiosk/cmd/kiosk/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/kozaktomas/face-kiosk/cmd"

func main() {
	cmd.Execute()
}

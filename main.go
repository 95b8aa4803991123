package main

import "geodrop-backend/cmd"

func main() {
	cmd.Run()
}

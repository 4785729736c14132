package main

import "github.com/Yates-Labs/deadwave/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/structrel/calfactor/cmd"

func main() {
	cmd.Execute()
}

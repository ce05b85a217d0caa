package main

import "github.com/mapstream/mapstream/cmd"

func main() {
	cmd.Execute()
}

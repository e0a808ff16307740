package main

import "github.com/jsphweid/keystream/cmd"

func main() {
	cmd.Execute()
}

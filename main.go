package main

import "github.com/user/vulncorr/cmd"

func main() {
	cmd.Execute()
}

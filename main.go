package main

import "github.com/Norgate-AV/vyc/cmd"

func main() {
	cmd.Execute()
}

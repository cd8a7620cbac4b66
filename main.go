package main

import "ssmrun/cmd"

func main() {
	cmd.Execute()
}

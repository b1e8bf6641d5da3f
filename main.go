package main

import "github.com/Tiliavir/nt-hours/cmd"

func main() {
	cmd.Execute()
}

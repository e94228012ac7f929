package main

import "github.com/smartclass/attendance/cmd"

func main() {
	cmd.Execute()
}

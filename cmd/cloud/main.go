package main

import "agroedge/cmd/cloud/cmd"

func main() {
	cmd.Execute()
}

package main

import "agroedge/cmd/edgehub/cmd"

func main() {
	cmd.Execute()
}

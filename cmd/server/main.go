package main

import "github.com/arsenmarkotskyi/tt-event-management/cmd/server/cmd"

func main() {
	cmd.Execute()
}

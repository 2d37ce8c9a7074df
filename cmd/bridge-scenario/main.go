package main

import (
	"github.com/osmosis-labs/cosmos-gravity-bridge/cmd/bridge-scenario/cmd"
)

func main() {
	cmd.Execute()
}

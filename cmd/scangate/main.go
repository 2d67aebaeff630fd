package main

import "github.com/MeKo-Tech/scangate/cmd/scangate/cmd"

func main() {
	cmd.Execute()
}

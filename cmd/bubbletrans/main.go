package main

import "github.com/MeKo-Tech/bubbletrans/cmd/bubbletrans/cmd"

func main() {
	cmd.Execute()
}

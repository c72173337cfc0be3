package main

import "github.com/foxseedlab/segscribe/cmd/segscribe/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/AzielCF/az-prospect/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/TheusHen/sdict/cmd/sdict/cmd"

func main() {
	cmd.Execute()
}

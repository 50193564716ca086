package main

import "github.com/oshokin/mongo-provision/cmd/mongo-provision/cmd"

func main() {
	cmd.Execute()
}

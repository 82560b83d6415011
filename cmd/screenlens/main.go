package main

import "github.com/devicelab-dev/screenlens/pkg/cli"

func main() {
	cli.Execute()
}

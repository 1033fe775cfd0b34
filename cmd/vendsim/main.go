package main

import "github.com/ibrahimkeyboad/govend/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/chupakbra/member-admin/cli"

func main() {
	cli.Execute()
}

package main

import "portfolio/cmd/portfolioctl/commands"

func main() {
	commands.Execute()
}

package main

import "trip-guardian/internal/cli"

func main() {
	cli.Execute()
}

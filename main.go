package main

import "github.com/ataa-platform/ataa_backend/cmd"

func main() {
	cmd.Execute()
}

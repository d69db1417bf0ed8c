package main

import "github.com/denysvitali/repo-analyzer-go/cmd"

func main() {
	cmd.Execute()
}

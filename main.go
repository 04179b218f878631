package main

import "github.com/tech-takkwatanabe/npm-attack-detect-project/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	"flag"

	"github.com/relhash/malh/repl"
)

func main() {
	useMemory := flag.Bool("memory", false, "keep relations in memory instead of writing .info/.data/.ovflow files")
	flag.Parse()

	repl.New(*useMemory).Run()
}

package main

import (
	"log"
	"os"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli := commandLine{
		conf:   core.NewConfig(),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	defer cli.close()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		cli.close()
		os.Exit(1)
	}
}

package main

import (
	"github.com/sirupsen/logrus"

	"hubblescan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}

// Copyright 2025 The Autopeer Authors.

package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/oscpeer/cmd/oscpeer-sim/app"
	"github.com/autopeer-io/oscpeer/pkg/log"
)

func main() {
	err := app.NewApp().Run()
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

package main

import (
	"log/slog"
	"os"
)

const appName = "climate-server"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

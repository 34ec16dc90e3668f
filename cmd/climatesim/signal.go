package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals registers handlers for graceful shutdown.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}

// stopSignals unregisters the handlers and releases the waiting goroutine.
func stopSignals(ch chan os.Signal) {
	signal.Stop(ch)
	close(ch)
}

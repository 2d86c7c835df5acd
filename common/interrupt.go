package common

import (
	"os"
	"os/signal"
	"syscall"
)

// Interrupted returns a channel that receives on shutdown signals.
// SIGKILL cannot be caught; an active recording interrupted that way is
// recovered by the startup retry pass instead.
func Interrupted() <-chan os.Signal {
	interrupt := make(chan os.Signal, 2)
	signal.Notify(interrupt,
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGQUIT,
	)
	return interrupt
}

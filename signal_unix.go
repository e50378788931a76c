//go:build !windows

package heartbeat

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandler wires SIGUSR2 to RenewAddressMappings (§4.5 "OS
// signal integration"). The handler dispatches to the *Agent instance
// captured at registration and tolerates that instance having already shut
// down: RenewAddressMappings on a dead agent just arms a flag nobody reads
// again, which is harmless.
func installSignalHandler(a *Agent) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR2)

	go func() {
		for range ch {
			a.RenewAddressMappings()
		}
	}()
}

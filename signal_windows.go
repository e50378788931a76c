//go:build windows

package heartbeat

// installSignalHandler is a no-op on Windows: SIGUSR2 does not exist on
// this platform. Per §7 ("signal-handler installation failure ->
// warn, continue"), the agent continues without signal-driven renewal;
// RenewAddressMappings remains available as a direct API call.
func installSignalHandler(a *Agent) {
	a.cfg.Logger.Warn("signal-driven address-mapping renewal is unavailable on windows")
}

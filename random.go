package heartbeat

import "github.com/pochard/commons/randstr"

// fallbackHostID generates a random host identifier for the rare case where
// HostIdentity's machineid lookup fails (e.g. a container without
// /etc/machine-id and without registry or IOPlatformUUID access), adapted
// from the teacher's random.go Random helper trimmed to the one generator
// this module needs. It is not persisted by this module; a caller that
// wants a stable fallback across restarts must persist it itself.
func fallbackHostID() string {
	return randstr.RandomAlphanumeric(32)
}

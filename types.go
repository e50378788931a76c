// Package heartbeat implements the service heartbeat agent embedded in every
// XtreemFS-style service process (DIR, MRC, OSD). It keeps the cluster's
// Directory Service informed of a service's existence, network endpoints,
// configuration, and liveness.
package heartbeat

import "fmt"

// ServiceType is the closed set of service kinds the DIR recognizes.
type ServiceType string

const (
	ServiceTypeDIR    ServiceType = "DIR"
	ServiceTypeMRC    ServiceType = "MRC"
	ServiceTypeOSD    ServiceType = "OSD"
	ServiceTypeVolume ServiceType = "VOLUME"
)

// ServiceStatus is the numeric code carried under the static.status key.
type ServiceStatus int

const (
	ServiceStatusAvailable ServiceStatus = 1
	ServiceStatusToBeRemoved ServiceStatus = 2
	ServiceStatusRemoved ServiceStatus = 3
)

// Protocol is the closed set of address-mapping transport schemes.
type Protocol string

const (
	ProtocolPlain   Protocol = "oncrpc"
	ProtocolTLS     Protocol = "oncrpcs"
	ProtocolGridTLS Protocol = "oncrpcg"
	ProtocolUDP     Protocol = "oncrpcu"
)

const (
	// StaticAttributePrefix marks DIR-owned keys the agent must preserve verbatim.
	StaticAttributePrefix = "static."
	// StaticStatusKey is the well-known static attribute carrying ServiceStatus.
	StaticStatusKey = StaticAttributePrefix + "status"
	// StaticDoNotSetLastUpdatedKey is honored by DIR and must never be dropped by the agent.
	StaticDoNotSetLastUpdatedKey = StaticAttributePrefix + "do_not_set_last_updated"
	// MRCKeyPrefix marks volume-MRC replica pointer keys.
	MRCKeyPrefix = "mrc"

	// DefaultUpdateIntervalMillis is the periodic-loop sleep (ms) between ticks.
	DefaultUpdateIntervalMillis = 60000
	// DefaultConflictRetryIntervalMillis is the sleep (ms) between unconditional retries during Initialize.
	DefaultConflictRetryIntervalMillis = 5000
	// DefaultAddressMappingTTLSeconds is the default TTL stamped on every written mapping.
	DefaultAddressMappingTTLSeconds = 3600
	// DefaultMatchNetwork is the CIDR-or-wildcard default for an address mapping.
	DefaultMatchNetwork = "*"

	// RPCUsername and RPCGroup identify the agent to DIR on every call (§6.2).
	RPCUsername = "hb-thread"
	RPCGroup    = "xtreemfs-services"
)

// ServiceRecord is the service-side document written to and read from DIR.
type ServiceRecord struct {
	UUID    string
	Type    ServiceType
	Name    string
	Version uint64
	Data    map[string]string
}

// ServiceSet is the result of a ServiceGetByUuid call; Services is empty when
// the DIR has no prior record for the requested UUID.
type ServiceSet struct {
	Services []ServiceRecord
}

// AddressMapping is one reachable-endpoint record for a service.
type AddressMapping struct {
	UUID         string
	Version      uint64
	Protocol     Protocol
	Address      string
	Port         uint16
	MatchNetwork string
	TTLSeconds   uint32
	URI          string
}

// AddressMappingSet is the all-or-nothing set of endpoints for one service.
// UUID identifies the owning service even when Mappings is empty (no
// reachable endpoints), so the write still targets the right DIR record.
type AddressMappingSet struct {
	UUID     string
	Mappings []AddressMapping
}

// Configuration is the service's effective key/value configuration as
// published to DIR by the configuration publisher (§4.4).
type Configuration struct {
	UUID    string
	Version uint64
	Data    map[string]string
}

// BuildURI derives the canonical protocol://address:port form of a mapping.
func (m AddressMapping) BuildURI() string {
	return fmt.Sprintf("%s://%s:%d", m.Protocol, m.Address, m.Port)
}

// ServiceGenerator is the single-method contract a host service implements to
// hand the agent its current snapshot of service records each tick (§9).
type ServiceGenerator interface {
	// GenerateServices returns the current snapshot of services this process
	// advertises. It must be side-effect free and fast: it is called once per
	// tick under no lock held by the caller.
	GenerateServices() ([]ServiceRecord, error)
}

// ServiceGeneratorFunc adapts a plain function to ServiceGenerator.
type ServiceGeneratorFunc func() ([]ServiceRecord, error)

func (f ServiceGeneratorFunc) GenerateServices() ([]ServiceRecord, error) { return f() }

package heartbeat

import (
	"context"
	"net"
	"strconv"
	"strings"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
)

// TransportScheme is decided once at construction from the useSSL /
// gridSSLMode configuration flags (§4.3).
type TransportScheme struct {
	UseSSL       bool
	GridSSLMode  bool
	AdvertiseUDP bool
}

func (s TransportScheme) primaryProtocol() Protocol {
	switch {
	case s.GridSSLMode:
		return ProtocolGridTLS
	case s.UseSSL:
		return ProtocolTLS
	default:
		return ProtocolPlain
	}
}

// EndpointConfig is the host-supplied configuration consulted by the address
// registrar: either an explicit host/address, or nothing (enumerate).
type EndpointConfig struct {
	Host   string // explicit hostname/address; empty means "enumerate"
	Port   uint16
	Scheme TransportScheme
}

type addressRegistrar struct {
	client DIRClient
	log    *hblog.Logger
}

func newAddressRegistrar(client DIRClient, log *hblog.Logger) *addressRegistrar {
	return &addressRegistrar{client: client, log: log}
}

// deriveEndpoints implements §4.3's endpoint-derivation algorithm. It
// returns the endpoint set and the advertisedHostName to report to callers.
func (a *addressRegistrar) deriveEndpoints(cfg EndpointConfig, uuid string) ([]AddressMapping, string) {
	if cfg.Host == "" {
		return a.enumerateReachableEndpoints(cfg, uuid)
	}
	return a.explicitEndpoint(cfg, uuid)
}

func (a *addressRegistrar) enumerateReachableEndpoints(cfg EndpointConfig, uuid string) ([]AddressMapping, string) {
	addrs, err := reachableAddresses()
	if err != nil || len(addrs) == 0 {
		a.log.Warn("no reachable network interfaces found for address enumeration", hblog.Fields{"error": err})
		return nil, ""
	}

	protocol := cfg.Scheme.primaryProtocol()
	mappings := make([]AddressMapping, 0, len(addrs)*2)
	for _, addr := range addrs {
		mappings = append(mappings, newMapping(uuid, protocol, addr, cfg.Port))
	}
	if cfg.Scheme.AdvertiseUDP {
		for _, addr := range addrs {
			mappings = append(mappings, newMapping(uuid, ProtocolUDP, addr, cfg.Port))
		}
	}
	return mappings, addrs[0]
}

func (a *addressRegistrar) explicitEndpoint(cfg EndpointConfig, uuid string) ([]AddressMapping, string) {
	host := strings.TrimPrefix(cfg.Host, "/")

	if _, err := net.LookupHost(host); err != nil {
		a.log.Warn("name resolution failed for advertised host, continuing unresolved", hblog.Fields{"host": host, "error": err})
	}

	protocol := cfg.Scheme.primaryProtocol()
	mappings := []AddressMapping{newMapping(uuid, protocol, host, cfg.Port)}
	if cfg.Scheme.AdvertiseUDP {
		mappings = append(mappings, newMapping(uuid, ProtocolUDP, host, cfg.Port))
	}
	return mappings, host
}

func newMapping(uuid string, protocol Protocol, address string, port uint16) AddressMapping {
	m := AddressMapping{
		UUID:         uuid,
		Protocol:     protocol,
		Address:      address,
		Port:         port,
		MatchNetwork: DefaultMatchNetwork,
		TTLSeconds:   DefaultAddressMappingTTLSeconds,
	}
	m.URI = m.BuildURI()
	return m
}

// reachableAddresses enumerates non-loopback IPv4 addresses across all up
// interfaces via gopsutil/v3/net, grounded on the teacher's monitor.go use of
// the same package for host introspection.
func reachableAddresses() ([]string, error) {
	ifaces, err := gnet.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, iface := range ifaces {
		up := false
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = true
			}
		}
		if !up {
			continue
		}
		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				ip = net.ParseIP(a.Addr)
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			out = append(out, ip.String())
		}
	}
	return out, nil
}

// register implements §4.3's version-reconciliation and write step.
func (a *addressRegistrar) register(ctx context.Context, cfg EndpointConfig, uuid string, numRetries int) (string, error) {
	endpoints, advertised := a.deriveEndpoints(cfg, uuid)

	var current AddressMappingSet
	err := withBoundedRetryOrUnbounded(ctx, numRetries, func() error {
		var e error
		current, e = a.client.AddressMappingsGet(ctx, uuid, numRetries)
		return e
	})
	if err != nil {
		return "", err
	}

	version := uint64(0)
	if len(current.Mappings) > 0 {
		version = current.Mappings[0].Version
	}
	if len(endpoints) > 0 {
		endpoints[0].Version = version
	}

	err = withBoundedRetryOrUnbounded(ctx, numRetries, func() error {
		return a.client.AddressMappingsSet(ctx, AddressMappingSet{UUID: uuid, Mappings: endpoints}, numRetries)
	})
	if err != nil {
		return "", err
	}

	a.log.Debug("address mappings registered", hblog.Fields{"uuid": uuid, "count": strconv.Itoa(len(endpoints))})
	return advertised, nil
}

package main

import (
	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/circuitbreaker"
	"github.com/alibaba/sentinel-golang/core/config"

	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
)

// initCircuitBreaker wires sentinel-golang the way the teacher's sentinel.go
// does (InitWithConfig, then LoadRules), scoped down to the single
// circuit-breaker rule set heartbeat.WithCircuitBreaker's resources need: a
// sustained error-ratio trip per DIR RPC kind, sharing one resource prefix
// with the breakerClient constructed in dialDIR.
func initCircuitBreaker(appName, resourcePrefix string, log *hblog.Logger) error {
	conf := config.NewDefaultConfig()
	conf.Sentinel.App.Name = appName
	if err := sentinel.InitWithConfig(conf); err != nil {
		log.Warn("sentinel init failed, circuit breaker disabled", hblog.Fields{"error": err})
		return err
	}

	rules := make([]*circuitbreaker.Rule, 0, len(dirRPCNames))
	for _, name := range dirRPCNames {
		rules = append(rules, &circuitbreaker.Rule{
			Resource:         resourcePrefix + "." + name,
			Strategy:         circuitbreaker.ErrorRatio,
			RetryTimeoutMs:   5000,
			MinRequestAmount: 5,
			StatIntervalMs:   10000,
			Threshold:        0.5,
		})
	}
	if _, err := circuitbreaker.LoadRules(rules); err != nil {
		log.Warn("loading circuit breaker rules failed, circuit breaker disabled", hblog.Fields{"error": err})
		return err
	}
	return nil
}

var dirRPCNames = []string{
	"service_get_by_uuid",
	"service_register",
	"service_offline",
	"configuration_get",
	"configuration_set",
	"address_mappings_get",
	"address_mappings_set",
}

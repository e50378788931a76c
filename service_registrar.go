package heartbeat

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
)

// serviceRegistrar implements component B: builds a fresh service record
// each tick, merges with DIR's current record under version rules, and
// writes it back.
type serviceRegistrar struct {
	client DIRClient
	log    *hblog.Logger
}

func newServiceRegistrar(client DIRClient, log *hblog.Logger) *serviceRegistrar {
	return &serviceRegistrar{client: client, log: log}
}

// register runs the full §4.2 algorithm for one generated record and returns
// the time of a successful write (zero Time on failure).
func (r *serviceRegistrar) register(ctx context.Context, generated ServiceRecord, numRetries int) (time.Time, error) {
	var set ServiceSet
	err := withBoundedRetryOrUnbounded(ctx, numRetries, func() error {
		var e error
		set, e = r.client.ServiceGetByUuid(ctx, generated.UUID, numRetries)
		return e
	})
	if err != nil {
		return time.Time{}, err
	}

	var prior *ServiceRecord
	if len(set.Services) > 0 {
		prior = &set.Services[0]
	}

	currentVersion := uint64(0)
	if prior != nil {
		currentVersion = prior.Version
	}

	static := collectStaticAttributes(prior)
	if _, ok := static[StaticStatusKey]; !ok {
		static[StaticStatusKey] = strconv.Itoa(int(ServiceStatusAvailable))
	}

	newRecord := ServiceRecord{
		UUID:    generated.UUID,
		Type:    generated.Type,
		Name:    generated.Name,
		Version: currentVersion,
		Data:    make(map[string]string, len(generated.Data)+len(static)),
	}
	for k, v := range static {
		newRecord.Data[k] = v
	}

	if generated.Type == ServiceTypeVolume && prior != nil {
		applyMRCReplicaRule(newRecord.Data, prior.Data, generated.Data)
	} else {
		for k, v := range generated.Data {
			newRecord.Data[k] = v
		}
	}

	err = withBoundedRetryOrUnbounded(ctx, numRetries, func() error {
		return r.client.ServiceRegister(ctx, newRecord, numRetries)
	})
	if err != nil {
		return time.Time{}, err
	}

	r.log.Debug("service registered", hblog.Fields{"uuid": generated.UUID, "version": currentVersion})
	return timeNow(), nil
}

// withBoundedRetryOrUnbounded routes UnboundedRetries to the transport's own
// retry loop (passed straight through to the DIRClient call, which is
// expected to retry internally per §6.2 "each has a variant accepting a
// bounded retry count"); any other numRetries uses the bounded retry helper
// as an additional client-side safety net around transient connection loss.
func withBoundedRetryOrUnbounded(ctx context.Context, numRetries int, fn func() error) error {
	if numRetries == UnboundedRetries {
		return fn()
	}
	return withBoundedRetry(ctx, numRetries, fn)
}

func collectStaticAttributes(prior *ServiceRecord) map[string]string {
	out := make(map[string]string)
	if prior == nil {
		return out
	}
	for k, v := range prior.Data {
		if strings.HasPrefix(k, StaticAttributePrefix) {
			out[k] = v
		}
	}
	return out
}

// applyMRCReplicaRule implements §4.2's MRC replica rule: preserve every
// pre-existing mrcN entry, and append the generator's mrc value under the
// index one past the highest existing index if it is not already present.
func applyMRCReplicaRule(dst, prior, generated map[string]string) {
	maxNo := 0
	existingValues := make(map[string]bool)
	for k, v := range prior {
		if !strings.HasPrefix(k, MRCKeyPrefix) {
			continue
		}
		no := mrcKeyNumber(k)
		if no == 0 {
			continue
		}
		dst[k] = v
		existingValues[v] = true
		if no > maxNo {
			maxNo = no
		}
	}

	newMRC, hasNewMRC := generated[MRCKeyPrefix]
	if hasNewMRC && !existingValues[newMRC] {
		dst[mrcKeyForNumber(maxNo+1)] = newMRC
	}

	for k, v := range generated {
		if strings.HasPrefix(k, MRCKeyPrefix) {
			continue
		}
		dst[k] = v
	}
}

// mrcKeyNumber returns the replica index encoded in an mrcN key: "mrc" is 1,
// "mrc2".."mrc9"... are their literal suffix, anything else is 0 (not an MRC
// key at all, e.g. a coincidentally-prefixed generator key would never reach
// here since generated keys are filtered separately by the caller).
func mrcKeyNumber(key string) int {
	if key == MRCKeyPrefix {
		return 1
	}
	suffix := strings.TrimPrefix(key, MRCKeyPrefix)
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 2 {
		return 0
	}
	return n
}

func mrcKeyForNumber(n int) string {
	if n <= 1 {
		return MRCKeyPrefix
	}
	return MRCKeyPrefix + strconv.Itoa(n)
}

var timeNow = func() time.Time { return time.Now() }

package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Redis channels and keys.
const (
	ChannelMiner    = "fleetscan:miner"
	ChannelProgress = "fleetscan:progress"
	DeviceTable     = "FLEETSCAN_DEVICE"
)

const publishTimeout = 2 * time.Second

// DeviceKey is the hash holding the latest observation of a device.
func DeviceKey(address string) string {
	return DeviceTable + "|" + address
}

// Redis publishes events for external dashboards and keeps the latest
// observation of each device in a hash. Publish failures are logged and
// otherwise ignored.
type Redis struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedis creates an emitter for the Redis server at addr.
func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ctx:    context.Background(),
	}
}

// Connect checks that the server is reachable.
func (r *Redis) Connect() error {
	return r.client.Ping(r.ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Miner(ev model.MinerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		util.Warnf("encoding miner event: %v", err)
		return
	}
	obs := ev.Observation

	ctx, cancel := context.WithTimeout(r.ctx, publishTimeout)
	defer cancel()

	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, ChannelMiner, data)
		p.HSet(ctx, DeviceKey(obs.IP),
			"event", string(data),
			"status", string(obs.Status),
			"errors", strings.Join(obs.Errors, "\n"),
			"updated", time.Now().UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		util.WithDevice(obs.IP).Warnf("publishing to redis: %v", err)
	}
}

func (r *Redis) Progress(p model.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, ChannelProgress, data).Err(); err != nil {
		util.Debugf("publishing progress to redis: %v", err)
	}
}

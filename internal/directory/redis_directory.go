package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

const (
	fieldAddress     = "address"
	fieldDisplayName = "display_name"

	defaultKeyTTL            = 30 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
)

// session is the state the worker converges Redis towards. refs counts live
// connections claiming the id; zero means the key is due for deletion.
type session struct {
	refs        int
	displayName string
}

// RedisDirectory writes one hash per session with a TTL that a heartbeat
// keeps alive. Callers only record the desired state of a session and mark
// it dirty; a single worker writes dirty sessions out, so a burst of updates
// to one session collapses into one write and nothing is ever dropped.
type RedisDirectory struct {
	client            *redis.Client
	advertiseAddress  string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	dirty    map[string]struct{}
	notify   chan struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewRedisDirectory(cfg config.RedisConfig) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = defaultKeyTTL
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}

	return &RedisDirectory{
		client:            client,
		advertiseAddress:  cfg.AdvertiseAddress,
		prefix:            cfg.Prefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		sessions:          make(map[string]*session),
		dirty:             make(map[string]struct{}),
		notify:            make(chan struct{}, 1),
	}, nil
}

func (d *RedisDirectory) keyFor(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", d.prefix, sessionID)
}

func (d *RedisDirectory) Announce(sessionID, displayName string) {
	d.mu.Lock()
	st, ok := d.sessions[sessionID]
	if !ok {
		st = &session{}
		d.sessions[sessionID] = st
	}
	st.refs++
	st.displayName = displayName
	d.dirty[sessionID] = struct{}{}
	d.mu.Unlock()

	d.wake()
}

// Withdraw releases one connection's claim. Unknown sessions are ignored.
func (d *RedisDirectory) Withdraw(sessionID string) {
	d.mu.Lock()
	st, ok := d.sessions[sessionID]
	if !ok || st.refs == 0 {
		d.mu.Unlock()
		return
	}
	st.refs--
	d.dirty[sessionID] = struct{}{}
	d.mu.Unlock()

	d.wake()
}

func (d *RedisDirectory) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *RedisDirectory) Lookup(ctx context.Context, sessionID string) (Entry, error) {
	fields, err := d.client.HGetAll(ctx, d.keyFor(sessionID)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to lookup session: %w", err)
	}
	if len(fields) == 0 {
		return Entry{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return Entry{
		Address:     fields[fieldAddress],
		DisplayName: fields[fieldDisplayName],
	}, nil
}

// Start launches the worker. It stops when ctx is cancelled or Close is called.
func (d *RedisDirectory) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.run(ctx)

	l := log.L()
	l.Info().Dur("interval", d.heartbeatInterval).Dur("ttl", d.keyTTL).Msg("session directory started")
	return nil
}

func (d *RedisDirectory) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
			d.flush(ctx)
		case <-ticker.C:
			d.flush(ctx)
			d.refreshKeys(ctx)
		}
	}
}

type pending struct {
	sessionID   string
	displayName string
	live        bool
}

// takeDirty snapshots the dirty sessions and forgets the ones no connection
// claims any more.
func (d *RedisDirectory) takeDirty() []pending {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]pending, 0, len(d.dirty))
	for id := range d.dirty {
		st := d.sessions[id]
		out = append(out, pending{sessionID: id, displayName: st.displayName, live: st.refs > 0})
		if st.refs == 0 {
			delete(d.sessions, id)
		}
	}
	clear(d.dirty)
	return out
}

// retry marks a session dirty again after a failed write, unless a newer
// update already did. The next heartbeat picks it up.
func (d *RedisDirectory) retry(p pending) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[p.sessionID]; !ok {
		if p.live {
			return
		}
		d.sessions[p.sessionID] = &session{}
	}
	d.dirty[p.sessionID] = struct{}{}
}

func (d *RedisDirectory) flush(ctx context.Context) {
	l := log.L()
	for _, p := range d.takeDirty() {
		key := d.keyFor(p.sessionID)

		if !p.live {
			if err := d.client.Del(ctx, key).Err(); err != nil {
				l.Error().Err(err).Str(log.FieldSessionID, p.sessionID).Msg("failed to withdraw session")
				d.retry(p)
				continue
			}
			l.Debug().Str(log.FieldSessionID, p.sessionID).Msg("withdrew session")
			continue
		}

		pipe := d.client.TxPipeline()
		pipe.HSet(ctx, key, fieldAddress, d.advertiseAddress, fieldDisplayName, p.displayName)
		pipe.Expire(ctx, key, d.keyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			l.Error().Err(err).Str(log.FieldSessionID, p.sessionID).Msg("failed to announce session")
			d.retry(p)
			continue
		}
		l.Debug().Str(log.FieldSessionID, p.sessionID).Msg("announced session")
	}
}

func (d *RedisDirectory) refreshKeys(ctx context.Context) {
	d.mu.Lock()
	live := make([]string, 0, len(d.sessions))
	for id, st := range d.sessions {
		if st.refs > 0 {
			live = append(live, id)
		}
	}
	d.mu.Unlock()
	if len(live) == 0 {
		return
	}

	pipe := d.client.Pipeline()
	for _, id := range live {
		pipe.Expire(ctx, d.keyFor(id), d.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l := log.L()
		l.Error().Err(err).Int("sessions", len(live)).Msg("failed to refresh keys")
	}
}

// Close stops the worker and releases the client. Keys of this process are
// left to expire.
func (d *RedisDirectory) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.client.Close()
}

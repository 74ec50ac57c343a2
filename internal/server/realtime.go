package server

import (
	"context"
	"sync"
	"time"
)

const (
	// RealtimeEventDataChanged notifies open dashboards that the tenant's
	// shortcuts or labels changed and a re-fetch is due.
	RealtimeEventDataChanged = "data-change"
	// RealtimeEventConfigSync announces a force-synced configuration version.
	RealtimeEventConfigSync = "config-sync"
	realtimeEventHeartbeat  = "heartbeat"
)

// RealtimeMessage is one event delivered to a tenant's subscribers.
type RealtimeMessage struct {
	Tenant        string
	EventType     string
	ConfigVersion int64
	Timestamp     time.Time
}

// RealtimeDispatcher fans events out to the SSE streams of a tenant. Slow
// subscribers drop messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

// NewRealtimeDispatcher constructs an empty dispatcher.
func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream for the tenant. The returned cleanup is also
// invoked automatically when the context ends.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, tenant string) (<-chan RealtimeMessage, func()) {
	if tenant == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(tenant, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(tenant, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the message to every subscriber of its tenant.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.Tenant == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.Tenant]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// Broadcast delivers the message to every subscriber on every tenant; used
// for global configuration events.
func (d *RealtimeDispatcher) Broadcast(message RealtimeMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	tenants := make([]string, 0, len(d.subscribers))
	for tenant := range d.subscribers {
		tenants = append(tenants, tenant)
	}
	d.mu.RUnlock()
	for _, tenant := range tenants {
		scoped := message
		scoped.Tenant = tenant
		d.Publish(scoped)
	}
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(tenant string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[tenant]; !ok {
		d.subscribers[tenant] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[tenant][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(tenant string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[tenant]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, tenant)
		}
	}
	d.mu.Unlock()
}

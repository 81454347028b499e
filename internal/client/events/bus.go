package events

import (
	"sort"
	"sync"
)

// Handler receives every published event. Use On to subscribe to a single
// kind with a typed callback.
type Handler func(Event)

// Bus is a best-effort in-process pub/sub hub. All handlers run on one
// dispatch goroutine, so they never race each other and observe events in
// publish order. There is no persistence or replay: late subscribers miss
// prior events.
type Bus struct {
	mu   sync.Mutex
	subs map[string]Handler

	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

const publishBuffer = 256

func NewBus() *Bus {
	b := &Bus{
		subs: make(map[string]Handler),
		ch:   make(chan Event, publishBuffer),
		done: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.ch:
			b.deliver(e)
		case <-b.done:
			// Drain what was published before Close.
			for {
				select {
				case e := <-b.ch:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.Lock()
	keys := make([]string, 0, len(b.subs))
	for k := range b.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	handlers := make([]Handler, 0, len(keys))
	for _, k := range keys {
		handlers = append(handlers, b.subs[k])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Publish enqueues the event for delivery. Delivery is best-effort: if the
// bus is closed or the queue is full the event is dropped.
func (b *Bus) Publish(e Event) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.ch <- e:
	default:
	}
}

// Subscribe registers a handler under the given key, replacing any previous
// handler with the same key.
func (b *Bus) Subscribe(key string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[key] = h
}

// Unsubscribe removes the handler registered under key. It is idempotent
// and safe to call from teardown paths.
func (b *Bus) Unsubscribe(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, key)
}

// Close stops the dispatch goroutine after draining pending events.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
}

// On subscribes a typed callback for a single event kind. Events of other
// kinds are ignored, so the kind check happens at compile time in the
// callback signature rather than through runtime string keys.
func On[T Event](b *Bus, key string, fn func(T)) {
	b.Subscribe(key, func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}

package engine

//go:generate go tool mockgen -destination=./mocks/sink_mock.go -package=mocks . Sink

// Sink receives a snapshot after every tick. Renderers, the observer stream
// and the trace writer are sinks. A failing sink is logged and skipped; it
// never stops the simulation.
type Sink interface {
	Publish(snap Snapshot) error
	Close() error
}

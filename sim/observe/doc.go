// Package observe carries simulation progress out of the engine: to the log,
// to in-process or Redis subscribers, to Prometheus, and to websocket clients.
//
// Every type here implements sim.ProgressSink and can be combined with
// sim.MultiSink. Report runs on the simulation goroutine, so sinks never block
// on slow consumers; brokers drop reports for subscribers that fall behind.
package observe

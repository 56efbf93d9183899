package engine

import "github.com/jonesrussell/gomigrate/internal/domain"

// Observer receives one-way progress events from the engine.
// Implementations must not block and must not mutate engine state; the
// engine calls Progress inline between steps.
type Observer interface {
	Progress(domainName, step string, status domain.MigrationStatus)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(domainName, step string, status domain.MigrationStatus)

// Progress implements Observer.
func (f ObserverFunc) Progress(domainName, step string, status domain.MigrationStatus) {
	f(domainName, step, status)
}

// NopObserver discards all progress events.
type NopObserver struct{}

// Progress implements Observer.
func (NopObserver) Progress(domainName, step string, status domain.MigrationStatus) {}

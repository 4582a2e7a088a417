package notifier

// Notifier delivers operator alerts. Alert failures are never fatal to the
// batch pass that raised them.
type Notifier interface {
	Notify(text string) error
}

// Noop is used when no alert channel is configured.
type Noop struct{}

func (Noop) Notify(string) error { return nil }

// control/controller.go
// Author: momentics <momentics@gmail.com>
//
// Controller glues the config store and metrics registry into the
// api.Control contract exposed by the balancer facade.

package control

import "github.com/momentics/hioload-lb/api"

// Controller implements api.Control over a ConfigStore and MetricsRegistry.
type Controller struct {
	store   *ConfigStore
	metrics *MetricsRegistry
}

var _ api.Control = (*Controller)(nil)

// NewController wires a controller over existing store and registry.
func NewController(store *ConfigStore, metrics *MetricsRegistry) *Controller {
	return &Controller{store: store, metrics: metrics}
}

// Config returns a snapshot of the effective configuration.
func (c *Controller) Config() map[string]any {
	return c.store.GetSnapshot()
}

// Stats returns a snapshot of runtime counters.
func (c *Controller) Stats() map[string]any {
	return c.metrics.GetSnapshot()
}

// OnReload registers a configuration reload hook.
func (c *Controller) OnReload(fn func()) {
	c.store.OnReload(fn)
}

package observability

import "sync"

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	mu         sync.Mutex
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth starts a healthy report.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h and downgrades the overall status when needed.
func (s *ServiceHealth) AddComponent(h Health) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Components = append(s.Components, h)
	switch {
	case h.Status == HealthStatusDown:
		s.Status = HealthStatusDown
	case h.Status == HealthStatusDegraded && s.Status == HealthStatusUp:
		s.Status = HealthStatusDegraded
	}
}

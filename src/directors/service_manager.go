package directors

import (
	"sync"

	"go.uber.org/zap"
)

// ServiceManager keeps one EntityService per resource so the transport
// layer can look services up by route segment.
type ServiceManager struct {
	services map[string]*EntityService
	order    []string
	logger   *zap.SugaredLogger
	mu       sync.RWMutex
}

func NewServiceManager(logger *zap.SugaredLogger) *ServiceManager {
	return &ServiceManager{
		services: make(map[string]*EntityService),
		logger:   logger,
	}
}

// Register adds a service under its entity's plural resource name.
func (m *ServiceManager) Register(service *EntityService) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plural := service.Entity().Plural
	if _, exists := m.services[plural]; !exists {
		m.order = append(m.order, plural)
	}
	m.services[plural] = service

	if m.logger != nil {
		m.logger.Infow("Registered entity service", "resource", plural)
	}
}

// Get returns the service for a resource, if registered.
func (m *ServiceManager) Get(resource string) (*EntityService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	service, ok := m.services[resource]
	return service, ok
}

// All returns the registered services in registration order.
func (m *ServiceManager) All() []*EntityService {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*EntityService, 0, len(m.order))
	for _, plural := range m.order {
		out = append(out, m.services[plural])
	}
	return out
}

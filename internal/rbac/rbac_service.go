package rbac

import (
	"sync"

	"github.com/casbin/casbin/v2"
)

// Role and permission administration lives outside this service; only the
// enforcement side is needed here. Policies are seeded at startup.
type Service interface {
	Enforce(role, resource, action string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

func NewService(enforcer *casbin.Enforcer) (Service, error) {
	s := &service{enforcer: enforcer}
	if err := s.seedDefaultPolicies(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) seedDefaultPolicies() error {
	policies := [][]string{
		{"employee", "leave", "create"},
		{"employee", "leave", "read"},
		{"employee", "leave", "update"},
		{"employee", "leave", "submit"},
		{"employee", "leave", "cancel"},
		{"employee", "leave", "delete"},
		{"employee", "balance", "read"},
		{"manager", "leave", "read"},
		{"manager", "approval", "decide"},
		{"manager", "approval", "read"},
		{"manager", "balance", "read"},
		{"manager", "audit", "read"},
		{"hr_admin", "leave", "create"},
		{"hr_admin", "leave", "read"},
		{"hr_admin", "leave", "update"},
		{"hr_admin", "leave", "submit"},
		{"hr_admin", "leave", "cancel"},
		{"hr_admin", "leave", "delete"},
		{"hr_admin", "approval", "decide"},
		{"hr_admin", "approval", "read"},
		{"hr_admin", "balance", "read"},
		{"hr_admin", "balance", "manage"},
		{"hr_admin", "audit", "read"},
	}

	for _, p := range policies {
		if _, err := s.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Enforce(role, resource, action)
}

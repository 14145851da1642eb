package node

import (
	"reflect"

	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/service"
)

// Service resolves to a singleton from the service locator. The reference is
// never persisted.
type Service struct {
	origin string
	id     string
	lax    bool

	locator service.Locator
}

var _ Mapping = (*Service)(nil)

// NewService creates a service reference. A lax reference never fails
// AssertValue.
func NewService(origin, id string, lax bool) (*Service, error) {
	if id == "" {
		return nil, failf(origin, ErrInvalidMapping, "service without id")
	}

	return &Service{origin: origin, id: id, lax: lax}, nil
}

func (s *Service) DescribeOrigin() string { return s.origin }

func (s *Service) ID() string { return s.id }

func (s *Service) CollectColumns() []column.Column { return nil }

func (s *Service) ResolveValue(*hydration.Context, FlatData) (any, error) {
	if s.locator == nil {
		return nil, failf(s.origin, ErrNotAwake, "service %q", s.id)
	}

	svc, ok := s.locator.Get(s.id)
	if !ok {
		return nil, failf(s.origin, ErrServiceNotFound, "%q", s.id)
	}

	return svc, nil
}

func (s *Service) RevertValue(*hydration.Context, any) (FlatData, error) {
	return FlatData{}, nil
}

func (s *Service) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	if s.lax {
		return nil
	}

	svc, err := s.ResolveValue(ctx, data)
	if err != nil {
		return err
	}

	if !identical(svc, actual) {
		return failf(s.origin, ErrServiceMismatch, "%q is %s, got %s", s.id, describe(svc), describe(actual))
	}

	return nil
}

func (s *Service) WakeUp(rt Runtime) {
	s.locator = rt.normalize().Locator
}

// identical compares reference kinds by pointer and everything else by
// equality.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}

	if va.Type().Comparable() {
		return a == b
	}

	return false
}

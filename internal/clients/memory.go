package clients

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/policy"
)

// Memory is an in-memory Source, loaded from a fixture file or by tests.
type Memory struct {
	mu       sync.RWMutex
	clients  map[string]Client
	policies map[string][]policy.Stored
}

func NewMemory() *Memory {
	return &Memory{clients: map[string]Client{}, policies: map[string][]policy.Stored{}}
}

func (m *Memory) AddClient(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
}

func (m *Memory) AddPolicy(p policy.Stored) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ClientID] = append(m.policies[p.ClientID], p)
}

func (m *Memory) Get(ctx context.Context, id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, &apperr.ClientNotFoundError{ID: id}
	}
	return &c, nil
}

func (m *Memory) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < MinQueryLength {
		return []Summary{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Client
	for _, c := range m.clients {
		if m.matches(c, query) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]Summary, 0, len(matched))
	for _, c := range matched {
		s := Summary{ID: c.ID, FullName: c.FullName, Email: c.Email, PhoneNumber: c.PhoneNumber, DateOfBirth: c.DateOfBirth, ActivePolicies: []PolicyRef{}}
		for _, p := range m.policies[c.ID] {
			if IsActive(p.Status) {
				s.ActivePolicies = append(s.ActivePolicies, PolicyRef{ID: p.ID, PolicyNumber: p.PolicyNumber, Type: p.Type})
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) matches(c Client, query string) bool {
	if strings.Contains(strings.ToLower(c.FullName), query) || strings.Contains(strings.ToLower(c.Email), query) {
		return true
	}
	for _, p := range m.policies[c.ID] {
		if strings.Contains(strings.ToLower(p.PolicyNumber), query) {
			return true
		}
	}
	return false
}

func (m *Memory) DefaultAddress(ctx context.Context, clientID string) (*Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	if !ok {
		return nil, &apperr.ClientNotFoundError{ID: clientID}
	}
	return defaultAddress(c.Addresses), nil
}

func (m *Memory) Policies(ctx context.Context, clientID string) ([]policy.Stored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[clientID]; !ok {
		return nil, &apperr.ClientNotFoundError{ID: clientID}
	}
	var out []policy.Stored
	for _, p := range m.policies[clientID] {
		if IsActive(p.Status) {
			out = append(out, p)
		}
	}
	sortByEffective(out)
	return out, nil
}

func (m *Memory) ActivePolicy(ctx context.Context, clientID string, policyType policy.Type) (*policy.Stored, error) {
	pols, err := m.Policies(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for _, p := range pols {
		if policyType == "" || strings.EqualFold(string(p.Type), string(policyType)) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

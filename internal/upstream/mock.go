package upstream

import "context"

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Balance float64
	Status  string
	Err     error
	Calls   int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBalance(_ context.Context, _ string) (*Balance, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	status := m.Status
	if status == "" {
		status = "active"
	}
	return &Balance{Balance: m.Balance, Status: status}, nil
}

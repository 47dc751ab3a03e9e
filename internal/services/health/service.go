package health

import (
	"context"
	"database/sql"
	"time"
)

// Status is the payload served at /health.
type Status struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Database string `json:"database,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	Provider string
	Model    string
	DB       *sql.DB
}

// NewService constructs a new health service.
func NewService(provider, model string, db *sql.DB) *Service {
	return &Service{Provider: provider, Model: model, DB: db}
}

// Status reports which model answers verdicts. A configured database that
// fails its ping marks the service unhealthy.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Provider: s.Provider, Model: s.Model}
	if s.DB == nil {
		return st
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "ok"
	return st
}

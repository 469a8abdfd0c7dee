package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog cannot be served at all.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates a reachable but empty catalog index.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status      Status
	Checks      map[string]CheckResult
	IndexChunks int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	index     IndexSizer
	embedding EmbeddingChecker
	reviews   DBPinger
}

// New creates a Service. embedding and reviews can be nil.
func New(db DBPinger, index IndexSizer, embedding EmbeddingChecker, reviews DBPinger) *Service {
	return &Service{db: db, index: index, embedding: embedding, reviews: reviews}
}

// Check runs health checks against all components.
// A failing vector database makes the service unhealthy; anything else degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	var chunks int

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.index != nil {
		n, err := s.index.Size(ctx)
		switch {
		case err != nil:
			checks["index"] = CheckError
		case n == 0:
			checks["index"] = CheckEmpty
		default:
			checks["index"] = CheckOK
			chunks = n
		}
	}

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.reviews != nil {
		checks["reviews"] = result(s.reviews.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, IndexChunks: chunks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

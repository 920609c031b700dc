package domain

import "context"

// JobRepository is the api-side view of report jobs. Worker-side mutations
// go through the inline SQL in internal/sqlinline instead.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// CompanyRepository reads report targets.
type CompanyRepository interface {
	GetByID(ctx context.Context, id int64) (*Company, error)
}

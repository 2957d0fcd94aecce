package pipeline

import "context"

const jobName = "pos-sync"

// Job adapts a Pipeline to the cron worker.
type Job struct {
	pipeline *Pipeline
	trigger  string
}

func NewJob(p *Pipeline, trigger string) *Job {
	return &Job{pipeline: p, trigger: trigger}
}

func (j *Job) Name() string {
	return jobName
}

func (j *Job) Run(ctx context.Context) error {
	_, err := j.pipeline.Run(ctx, j.trigger)
	return err
}

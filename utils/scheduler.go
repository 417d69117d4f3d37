package utils

import (
	"github.com/robfig/cron/v3"
)

// Job is a named housekeeping task run by the scheduler.
type Job struct {
	Name string
	Spec string
	Run  func()
}

// StartScheduler registers jobs on a cron runner and starts it. A job that panics is
// recovered and logged so it cannot take the process down.
func StartScheduler(jobs ...Job) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})))
	for _, j := range jobs {
		j := j
		if _, err := c.AddFunc(j.Spec, func() {
			Sugar.Debugf("scheduler: running %s", j.Name)
			j.Run()
		}); err != nil {
			return nil, err
		}
	}
	c.Start()
	return c, nil
}

// cronLogger adapts the zap sugared logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	Sugar.Infow(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	Sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

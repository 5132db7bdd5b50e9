package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/shaiso/exosphere/internal/domain"
)

type instanceModel struct {
	ID            string    `bson:"_id"`
	Hostname      string    `bson:"hostname"`
	SchedulerName string    `bson:"schedulerName"`
	Score         float64   `bson:"score"`
	Primary       bool      `bson:"primary"`
	StartedAt     time.Time `bson:"startedAt"`
	LastCheckedIn time.Time `bson:"lastCheckedIn"`
}

func toInstanceModel(inst *domain.SchedulerInstance) *instanceModel {
	return &instanceModel{
		ID:            inst.ID,
		Hostname:      inst.Hostname,
		SchedulerName: inst.InstanceID,
		Score:         inst.Score,
		Primary:       inst.Primary,
		StartedAt:     inst.StartedAt,
		LastCheckedIn: inst.LastCheckedIn,
	}
}

func fromInstanceModel(m *instanceModel) domain.SchedulerInstance {
	return domain.SchedulerInstance{
		ID:            m.ID,
		Hostname:      m.Hostname,
		InstanceID:    m.SchedulerName,
		Score:         m.Score,
		Primary:       m.Primary,
		StartedAt:     m.StartedAt.UTC(),
		LastCheckedIn: m.LastCheckedIn.UTC(),
	}
}

type triggerModel struct {
	Unit  string `bson:"unit"`
	Value int    `bson:"value"`
}

type jobDependencyModel struct {
	JobName string `bson:"jobName"`
}

type databaseDependencyModel struct {
	DBName string `bson:"dbName"`
	Schema string `bson:"schema"`
	Table  string `bson:"table"`
	Column string `bson:"column"`
	Layout string `bson:"layout,omitempty"`
}

type dependenciesModel struct {
	Jobs     []jobDependencyModel      `bson:"jobs,omitempty"`
	Database []databaseDependencyModel `bson:"database,omitempty"`
}

type jobModel struct {
	JobName        string            `bson:"jobName"`
	Cron           string            `bson:"cron,omitempty"`
	Trigger        *triggerModel     `bson:"trigger,omitempty"`
	Dependencies   dependenciesModel `bson:"dependencies"`
	LastReportDate *time.Time        `bson:"lastReportDate,omitempty"`
}

func toJobModel(job *domain.JobDefinition) *jobModel {
	m := &jobModel{
		JobName:        job.Name,
		Cron:           job.Cron,
		LastReportDate: job.LastReportDate,
	}
	if job.Trigger != nil {
		m.Trigger = &triggerModel{Unit: string(job.Trigger.Unit), Value: job.Trigger.Value}
	}
	for _, dep := range job.Dependencies.Jobs {
		m.Dependencies.Jobs = append(m.Dependencies.Jobs, jobDependencyModel{JobName: dep.JobName})
	}
	for _, dep := range job.Dependencies.Database {
		m.Dependencies.Database = append(m.Dependencies.Database, databaseDependencyModel{
			DBName: dep.DBKind,
			Schema: dep.Schema,
			Table:  dep.Table,
			Column: dep.Column,
			Layout: dep.Layout,
		})
	}
	return m
}

// jobUpsertUpdate строит update для upsert по jobName. Определение
// заменяется целиком, lastReportDate пишется только при вставке.
func jobUpsertUpdate(job *domain.JobDefinition) bson.M {
	m := toJobModel(job)

	set := bson.M{
		"jobName":      m.JobName,
		"dependencies": m.Dependencies,
	}
	unset := bson.M{}
	if m.Cron != "" {
		set["cron"] = m.Cron
	} else {
		unset["cron"] = ""
	}
	if m.Trigger != nil {
		set["trigger"] = m.Trigger
	} else {
		unset["trigger"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if m.LastReportDate != nil {
		update["$setOnInsert"] = bson.M{"lastReportDate": m.LastReportDate.UTC()}
	}
	return update
}

func fromJobModel(m *jobModel) domain.JobDefinition {
	job := domain.JobDefinition{
		Name: m.JobName,
		Cron: m.Cron,
	}
	if m.Trigger != nil {
		job.Trigger = &domain.Trigger{Unit: domain.TriggerUnit(m.Trigger.Unit), Value: m.Trigger.Value}
	}
	if m.LastReportDate != nil {
		t := m.LastReportDate.UTC()
		job.LastReportDate = &t
	}
	for _, dep := range m.Dependencies.Jobs {
		job.Dependencies.Jobs = append(job.Dependencies.Jobs, domain.JobDependency{JobName: dep.JobName})
	}
	for _, dep := range m.Dependencies.Database {
		job.Dependencies.Database = append(job.Dependencies.Database, domain.DatabaseDependency{
			DBKind: dep.DBName,
			Schema: dep.Schema,
			Table:  dep.Table,
			Column: dep.Column,
			Layout: dep.Layout,
		})
	}
	return job
}

package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/imagvfx/cocowait/service"
)

// CreateJobsTable creates jobs table to a database if not exists.
// It is ok to call it multiple times.
func CreateJobsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			ord INTEGER NOT NULL UNIQUE,
			session TEXT NOT NULL,
			target TEXT NOT NULL,
			urgency INTEGER NOT NULL,
			spec TEXT NOT NULL,
			waitable BOOL NOT NULL,
			status INTEGER NOT NULL,
			assignee TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			errstr TEXT NOT NULL,
			submitted INTEGER NOT NULL,
			finished INTEGER NOT NULL
		);
	`)
	return err
}

// JobService interacts with a database for cocowait jobs.
type JobService struct {
	db *sql.DB
}

// NewJobService creates a new JobService.
func NewJobService(db *sql.DB) *JobService {
	return &JobService{db: db}
}

// AddJob adds a job into a database.
func (s *JobService) AddJob(j *service.Job) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = addJob(tx, j)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// addJob adds a job into a database.
func addJob(tx *sql.Tx, j *service.Job) error {
	_, err := tx.Exec(`
		INSERT INTO jobs (
			id,
			ord,
			session,
			target,
			urgency,
			spec,
			waitable,
			status,
			assignee,
			exit_code,
			errstr,
			submitted,
			finished
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID,
		j.Order,
		j.Session,
		j.Target,
		j.Urgency,
		j.Spec,
		j.Waitable,
		j.Status,
		j.Assignee,
		j.ExitCode,
		j.Errstr,
		j.Submitted,
		j.Finished,
	)
	return err
}

// FindJobs finds jobs those matched with given filter.
func (s *JobService) FindJobs(f service.JobFilter) ([]*service.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	jobs, err := findJobs(tx, f)
	if err != nil {
		return nil, err
	}
	err = tx.Commit()
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// findJobs finds jobs those matched with given filter.
func findJobs(tx *sql.Tx, f service.JobFilter) ([]*service.Job, error) {
	wh := NewWhere()
	if f.ID != "" {
		wh.Add("id", f.ID)
	}
	if f.Target != "" {
		wh.Add("target", f.Target)
	}
	if f.Session != "" {
		wh.Add("session", f.Session)
	}
	if f.Status != nil {
		wh.Add("status", *f.Status)
	}
	rows, err := tx.Query(`
		SELECT
			id,
			ord,
			session,
			target,
			urgency,
			spec,
			waitable,
			status,
			assignee,
			exit_code,
			errstr,
			submitted,
			finished
		FROM jobs
		`+wh.Stmt()+`
		ORDER BY ord ASC
	`,
		wh.Vals()...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*service.Job, 0)
	for rows.Next() {
		j := &service.Job{}
		err := rows.Scan(
			&j.ID,
			&j.Order,
			&j.Session,
			&j.Target,
			&j.Urgency,
			&j.Spec,
			&j.Waitable,
			&j.Status,
			&j.Assignee,
			&j.ExitCode,
			&j.Errstr,
			&j.Submitted,
			&j.Finished,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJob updates a job's fields those are not nil in the updater.
func (s *JobService) UpdateJob(j service.JobUpdater) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = updateJob(tx, j)
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return err
	}
	return nil
}

func updateJob(tx *sql.Tx, j service.JobUpdater) error {
	keys := []string{}
	vals := []interface{}{}
	if j.Status != nil {
		keys = append(keys, "status = ?")
		vals = append(vals, *j.Status)
	}
	if j.Assignee != nil {
		keys = append(keys, "assignee = ?")
		vals = append(vals, *j.Assignee)
	}
	if j.ExitCode != nil {
		keys = append(keys, "exit_code = ?")
		vals = append(vals, *j.ExitCode)
	}
	if j.Errstr != nil {
		keys = append(keys, "errstr = ?")
		vals = append(vals, *j.Errstr)
	}
	if j.Finished != nil {
		keys = append(keys, "finished = ?")
		vals = append(vals, *j.Finished)
	}
	if len(keys) == 0 {
		return fmt.Errorf("need at least one parameter to update")
	}
	vals = append(vals, j.ID)
	res, err := tx.Exec(`
		UPDATE jobs
		SET `+strings.Join(keys, ", ")+`
		WHERE
			id = ?
	`,
		vals...,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job not found: %v", j.ID)
	}
	return nil
}

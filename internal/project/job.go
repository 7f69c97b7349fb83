// Package project persists nesting jobs and their results as JSON
// files, so a job can be prepared once and re-run or shared.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

// Job bundles everything a nesting run needs: the parts, the sheet
// they are cut from and the engine configuration.
type Job struct {
	Name   string           `json:"name,omitempty"`
	Parts  []*model.Part    `json:"parts"`
	Sheet  model.Sheet      `json:"sheet"`
	Config model.NestConfig `json:"config"`
}

// DefaultJobsDir returns the default directory for stored jobs.
func DefaultJobsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".nest", "jobs")
}

// SaveJob writes a job to the given path as indented JSON, creating
// any missing parent directories.
func SaveJob(path string, job Job) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJob reads a job from the given path. Jobs saved before the
// config options existed load with engine defaults filled in.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, err
	}
	job := Job{Config: model.DefaultConfig()}
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parsing job file %s: %w", path, err)
	}
	if len(job.Parts) == 0 {
		return Job{}, errors.New("job file contains no parts")
	}
	for _, p := range job.Parts {
		if p.ID == "" {
			p.ID = model.NewPartID()
		}
		if p.Quantity == 0 {
			p.Quantity = 1
		}
	}
	return job, nil
}

// SaveLayout writes a nesting result to the given path as indented
// JSON, creating any missing parent directories.
func SaveLayout(path string, layout *model.Layout) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadLayout reads a previously saved nesting result.
func LoadLayout(path string) (*model.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var layout model.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parsing layout file %s: %w", path, err)
	}
	return &layout, nil
}

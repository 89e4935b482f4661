package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/dataprof/dataprof/internal/models"
	"github.com/dataprof/dataprof/internal/schema"
)

// Validate resolves every task of a profile against the registry and returns
// the tasks in document order, ready for execution. Duplicates are preserved.
// The first authoring error aborts validation: results are all-or-nothing.
func Validate(p *models.Profile, reg *schema.Registry) ([]models.ValidatedTask, error) {
	if p.Settings.GlobalTimeout != nil && *p.Settings.GlobalTimeout < 0 {
		return nil, &models.ValidationError{
			Kind:      models.ErrInvalidParameterValue,
			TaskIndex: -1,
			Param:     "global_timeout",
			Detail:    fmt.Sprintf("must be non-negative, got %v", *p.Settings.GlobalTimeout),
		}
	}

	tasks := make([]models.ValidatedTask, 0, len(p.Tasks))
	for i, spec := range p.Tasks {
		task, err := validateTask(i, spec, reg)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func validateTask(idx int, spec models.TaskSpec, reg *schema.Registry) (models.ValidatedTask, error) {
	var zero models.ValidatedTask

	family, algorithm, fs, err := resolveTask(idx, spec, reg)
	if err != nil {
		return zero, err
	}

	params, err := schema.MergeDefaults(fs, spec.Parameters)
	if err != nil {
		return zero, atIndex(err, idx, family)
	}

	var timeout time.Duration
	if spec.TimeoutSec != nil {
		if *spec.TimeoutSec < 0 {
			return zero, &models.ValidationError{
				Kind:      models.ErrInvalidParameterValue,
				TaskIndex: idx,
				Family:    family,
				Param:     "timeout",
				Detail:    fmt.Sprintf("must be non-negative, got %v", *spec.TimeoutSec),
			}
		}
		timeout = time.Duration(*spec.TimeoutSec * float64(time.Second))
	}

	return models.ValidatedTask{
		Index:     idx,
		Family:    family,
		Algorithm: algorithm,
		Params:    params,
		Timeout:   timeout,
	}, nil
}

// resolveTask determines the task's family, algorithm and schema. A task may
// name a family (algorithm optional, defaulted or overridden), or a bare
// algorithm from which the family is inferred. Standalone algorithms resolve
// to an empty family.
func resolveTask(idx int, spec models.TaskSpec, reg *schema.Registry) (string, string, *schema.FamilySchema, error) {
	if spec.Family == "" && spec.Algorithm == "" {
		return "", "", nil, &models.ValidationError{
			Kind:      models.ErrMissingFamily,
			TaskIndex: idx,
			Detail:    "task names neither a family nor an algorithm",
		}
	}

	if spec.Family != "" {
		fs, err := reg.SchemaFor(spec.Family)
		if err != nil {
			return "", "", nil, atIndex(err, idx, spec.Family)
		}
		algorithm := spec.Algorithm
		if algorithm == "" {
			algorithm = fs.DefaultAlgorithm
		} else if !fs.Permits(algorithm) {
			return "", "", nil, &models.ValidationError{
				Kind:      models.ErrInvalidParameterValue,
				TaskIndex: idx,
				Family:    spec.Family,
				Param:     "algorithm",
				Detail:    fmt.Sprintf("family %q does not permit algorithm %q", spec.Family, spec.Algorithm),
			}
		}
		return spec.Family, algorithm, fs, nil
	}

	family, ok := reg.FamilyForAlgorithm(spec.Algorithm, spec.Parameters)
	if !ok {
		return "", "", nil, &models.ValidationError{
			Kind:      models.ErrUnknownFamily,
			TaskIndex: idx,
			Detail:    fmt.Sprintf("no family declares algorithm %q", spec.Algorithm),
		}
	}
	if family == "" {
		return "", spec.Algorithm, reg.Standalone(), nil
	}
	fs, err := reg.SchemaFor(family)
	if err != nil {
		return "", "", nil, atIndex(err, idx, family)
	}
	return family, spec.Algorithm, fs, nil
}

// atIndex stamps the task index and family onto a validation error raised by
// the registry, which has no knowledge of task positions.
func atIndex(err error, idx int, family string) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		verr.TaskIndex = idx
		if verr.Family == "" {
			verr.Family = family
		}
		return verr
	}
	return err
}

// Package file provides file-based persistence for automations, executions
// and subjects. It backs local development and tests; production runs on
// the postgresql package.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system, one
// JSON file per record.
type Persistence struct {
	root           string
	automationRepo *AutomationRepository
	executionRepo  *ExecutionRepository
	subjectRepo    *SubjectRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		automationRepo: NewAutomationRepository(cleanRoot),
		executionRepo:  NewExecutionRepository(cleanRoot),
		subjectRepo:    NewSubjectRepository(cleanRoot),
	}
}

func (fp *Persistence) Automations() persistence.AutomationRepository {
	return fp.automationRepo
}

func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) Subjects() persistence.SubjectRepository {
	return fp.subjectRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup; nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID rejects ids unsafe for file names (path traversal).
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func writeRecord(dir, id string, record any) error {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}

	return nil
}

func readRecord(dir, id string, record any) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	err = json.Unmarshal(data, record)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}

	return true, nil
}

func removeRecord(dir, id string) error {
	err := os.Remove(filepath.Join(dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}

	return nil
}

func listIDs(dir string) ([]string, error) {
	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list records in %s: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ResolveDBPath resolves the physical database file path for the worker.
// An empty file name selects the ephemeral in-memory store used by tests.
func ResolveDBPath(dataDirectory, fileName string) (string, error) {
	if fileName == "" {
		return "", nil
	}
	if err := os.MkdirAll(dataDirectory, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", dataDirectory, err)
	}
	abs, err := filepath.Abs(filepath.Join(dataDirectory, fileName))
	if err != nil {
		return "", fmt.Errorf("error resolving database path %s: %w", fileName, err)
	}
	return abs, nil
}

// DeleteDataFile deletes a file
func DeleteDataFile(filePath string) error {
	return os.Remove(filePath)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false // File does not exist
		}

		logger.Infof("Error checking file %s for existence: %s", filename, err)
		return false // Some other error occurred
	}

	return !info.IsDir() // Return true if it's not a directory
}

package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	hoursPerDayConstant                         = 24
	retentionReadDirectoryErrorTemplateConstant = "unable to list %s: %w"
	retentionRemoveErrorTemplateConstant        = "unable to remove %s: %w"
)

// CleanupOldFiles deletes regular files in directory whose extension is in extensions
// (case-insensitive, leading dot optional) and whose modification time is more than
// retentionDays before now. A missing directory or a non-positive retention is a no-op.
// It returns the removed paths.
func CleanupOldFiles(directory string, retentionDays int, extensions []string, now time.Time) ([]string, error) {
	if retentionDays <= 0 {
		return nil, nil
	}
	entries, readError := os.ReadDir(directory)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(retentionReadDirectoryErrorTemplateConstant, directory, readError)
	}

	allowedExtensions := make(map[string]struct{}, len(extensions))
	for _, extension := range extensions {
		normalizedExtension := strings.ToLower(strings.TrimSpace(extension))
		if len(normalizedExtension) > 0 && !strings.HasPrefix(normalizedExtension, ".") {
			normalizedExtension = "." + normalizedExtension
		}
		allowedExtensions[normalizedExtension] = struct{}{}
	}
	cutoff := now.Add(-time.Duration(retentionDays) * hoursPerDayConstant * time.Hour)

	removedPaths := make([]string, 0)
	var removalErrors []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, allowed := allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !allowed {
			continue
		}
		information, informationError := entry.Info()
		if informationError != nil || !information.ModTime().Before(cutoff) {
			continue
		}
		candidatePath := filepath.Join(directory, entry.Name())
		if removeError := os.Remove(candidatePath); removeError != nil {
			removalErrors = append(removalErrors, fmt.Errorf(retentionRemoveErrorTemplateConstant, candidatePath, removeError))
			continue
		}
		removedPaths = append(removedPaths, candidatePath)
	}
	return removedPaths, errors.Join(removalErrors...)
}

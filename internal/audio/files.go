package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// IDSet is a set of numeric file ids.
type IDSet map[int]struct{}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// PrepareIDs collects the target and extra file ids from a manifest
// plus any additional id sets. Every id must be unique across all
// sources; duplicates are reported with their frequency.
func PrepareIDs(manifest Manifest, otherIDs ...[]int) (targets, extras, all IDSet, err error) {
	targets = make(IDSet)
	extras = make(IDSet)

	var allIDs []int
	for _, tracks := range manifest {
		for _, track := range tracks {
			if track.WemName != 0 {
				targets[track.WemName] = struct{}{}
				allIDs = append(allIDs, track.WemName)
			}
			for _, id := range track.ExtraIDs {
				if id != 0 {
					extras[id] = struct{}{}
					allIDs = append(allIDs, id)
				}
			}
		}
	}
	for _, ids := range otherIDs {
		allIDs = append(allIDs, ids...)
	}

	freq := make(map[int]int, len(allIDs))
	for _, id := range allIDs {
		freq[id]++
	}

	var dupes []string
	for id, n := range freq {
		if n > 1 {
			dupes = append(dupes, fmt.Sprintf("%d (x%d)", id, n))
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return nil, nil, nil, fmt.Errorf("duplicated ids: %s", strings.Join(dupes, ", "))
	}

	all = make(IDSet, len(allIDs))
	for _, id := range allIDs {
		all[id] = struct{}{}
	}
	return targets, extras, all, nil
}

// RemoveExtraFiles prunes "<id>.mp3" files in dir whose id is not in
// targets. Files whose stem is not numeric are left alone.
func RemoveExtraFiles(dir string, targets IDSet) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		id, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		if targets.Contains(id) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, stem+".mp3")); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove extra file %d: %w", id, err)
		}
	}
	return nil
}

// SetIDFilename renames a finished mp3 into dir under its file id.
// Returns the new path; a missing source is not an error so reruns
// are harmless.
func SetIDFilename(dir, mp3Path string, fileID int) (string, error) {
	newPath := filepath.Join(dir, strconv.Itoa(fileID)+".mp3")

	if _, err := os.Stat(mp3Path); err != nil {
		if os.IsNotExist(err) {
			return newPath, nil
		}
		return "", err
	}

	if err := os.Rename(mp3Path, newPath); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", mp3Path, err)
	}
	return newPath, nil
}

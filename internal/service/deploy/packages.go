package deploy

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// extractDeployedPackages scans a successful Maven build log for package
// installation messages and returns the .zip artifact names it finds.
func extractDeployedPackages(buildLog string) []string {
	if !strings.Contains(buildLog, "BUILD SUCCESS") {
		return nil
	}
	var packages []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(buildLog, "\n") {
		if !strings.Contains(line, "Installing package") && !strings.Contains(line, "Installed package") {
			continue
		}
		for _, part := range strings.Fields(line) {
			if !strings.HasSuffix(part, ".zip") {
				continue
			}
			name := filepath.Base(part)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			packages = append(packages, name)
		}
	}
	return packages
}

// locatePackage finds the content package produced by a full build,
// preferring the reactor's "all" package when present.
func locatePackage(projectRoot string) (string, error) {
	var candidates []string
	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".zip") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) != "target" {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan for packages: %w", err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no deployment packages found, build may have failed")
	}
	for _, path := range candidates {
		moduleDir := filepath.Base(filepath.Dir(filepath.Dir(path)))
		if strings.Contains(strings.ToLower(moduleDir), "all") {
			return path, nil
		}
	}
	return candidates[0], nil
}

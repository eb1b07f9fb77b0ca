// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	"fmt"
	"os"
	"path/filepath"
)

// Issue types reported by Validate.
const (
	IssueTypeStructure IssueType = "structure"
	IssueTypeNaming    IssueType = "naming"
	IssueTypeMetadata  IssueType = "palettemod"
	IssueTypeFragment  IssueType = "fragment"
)

type (
	// IssueType classifies a validation issue.
	IssueType string

	// ValidationIssue is one problem found in a module directory.
	ValidationIssue struct {
		Type    IssueType
		Message string
		// Path is relative to the module directory.
		Path string
	}

	// ValidationResult collects every issue found in one module directory.
	ValidationResult struct {
		Valid      bool
		ModulePath string
		ModuleID   ModuleID
		Issues     []ValidationIssue
	}
)

func (v ValidationIssue) Error() string {
	if v.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Type, v.Path, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// AddIssue records an issue and marks the result invalid.
func (r *ValidationResult) AddIssue(issueType IssueType, message, path string) {
	r.Valid = false
	r.Issues = append(r.Issues, ValidationIssue{Type: issueType, Message: message, Path: path})
}

// Validate inspects the module directory at dir and reports every issue it finds
// instead of stopping at the first one. An error is returned only when the path
// cannot be inspected at all.
func Validate(dir string) (*ValidationResult, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	result := &ValidationResult{Valid: true, ModulePath: absPath}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.AddIssue(IssueTypeStructure, "path does not exist", "")
			return result, nil
		}
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		result.AddIssue(IssueTypeStructure, "path is not a directory", "")
		return result, nil
	}

	dirID, err := ParseDirName(filepath.Base(absPath))
	if err != nil {
		result.AddIssue(IssueTypeNaming, err.Error(), "")
	} else {
		result.ModuleID = dirID
	}

	metaPath := filepath.Join(absPath, MetadataFile)
	var meta *Palettemod
	switch metaInfo, statErr := os.Stat(metaPath); {
	case statErr != nil && os.IsNotExist(statErr):
		result.AddIssue(IssueTypeStructure, "missing required "+MetadataFile, "")
	case statErr != nil:
		result.AddIssue(IssueTypeStructure, fmt.Sprintf("cannot access %s: %v", MetadataFile, statErr), "")
	case metaInfo.IsDir():
		result.AddIssue(IssueTypeStructure, MetadataFile+" must be a file, not a directory", "")
	default:
		meta, err = ParsePalettemod(metaPath)
		if err != nil {
			result.AddIssue(IssueTypeMetadata, err.Error(), MetadataFile)
		} else if result.ModuleID != "" && meta.Module != result.ModuleID {
			result.AddIssue(IssueTypeNaming,
				fmt.Sprintf("module field %q does not match directory name %q", meta.Module, result.ModuleID), MetadataFile)
		}
	}

	fragPath := FragmentPath(absPath)
	if fragPath == "" {
		return result, nil
	}
	rel := filepath.Base(fragPath)
	data, err := os.ReadFile(fragPath)
	if err != nil {
		result.AddIssue(IssueTypeFragment, fmt.Sprintf("cannot read: %v", err), rel)
		return result, nil
	}

	if filepath.Ext(fragPath) == ".cue" {
		owner := &Module{ID: result.ModuleID}
		if meta != nil {
			owner.ID, owner.Version = meta.Module, meta.Version
		}
		_, err = ParseCUEFragment(data, fragPath, owner)
	} else {
		_, err = ParseYAMLFragment(data, fragPath)
	}
	if err != nil {
		result.AddIssue(IssueTypeFragment, err.Error(), rel)
	}

	return result, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScaffoldProject prepares dir for vkloop. It creates vkloop.toml, the
// prompt file and a .gitignore entry for the run log directory. Files that
// already exist are left untouched. Returns the list of created or
// modified paths.
func ScaffoldProject(dir string) ([]string, error) {
	var created []string

	tomlPath := filepath.Join(dir, FileName)
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		if _, initErr := InitFile(dir); initErr != nil {
			return created, initErr
		}
		created = append(created, tomlPath)
	}

	promptPath := filepath.Join(dir, Defaults().Loop.PromptFile)
	if _, err := os.Stat(promptPath); os.IsNotExist(err) {
		if writeErr := os.WriteFile(promptPath, []byte(promptTemplate), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", promptPath, writeErr)
		}
		created = append(created, promptPath)
	}

	// Run logs are local artifacts.
	const gitignoreEntry = ".vkloop/"
	gitignorePath := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(gitignorePath)
	if os.IsNotExist(err) {
		if writeErr := os.WriteFile(gitignorePath, []byte(gitignoreEntry+"\n"), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", gitignorePath, writeErr)
		}
		created = append(created, gitignorePath)
	} else if err != nil {
		return created, fmt.Errorf("scaffold: read %s: %w", gitignorePath, err)
	} else if !hasLine(string(existing), gitignoreEntry) {
		content := string(existing)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content += "\n"
		}
		content += gitignoreEntry + "\n"
		if writeErr := os.WriteFile(gitignorePath, []byte(content), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", gitignorePath, writeErr)
		}
		created = append(created, gitignorePath)
	}

	return created, nil
}

func hasLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}

const promptTemplate = `Describe the task for the agent here.

Work through it step by step. Run the tests after each change.
When everything is finished and the tests pass, print exactly:

<promise>COMPLETE</promise>
`

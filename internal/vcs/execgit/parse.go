package execgit

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/scmpoll/internal/vcs"
)

// commitFormat separates fields with NUL so commit messages can contain
// anything else.
const commitFormat = "%H%x00%P%x00%an%x00%ae%x00%aI%x00%B"

func parseCommit(out string) (*vcs.Revision, error) {
	parts := strings.SplitN(out, "\x00", 6)
	if len(parts) != 6 {
		return nil, fmt.Errorf("unexpected show output: %d fields", len(parts))
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[4]))
	if err != nil {
		return nil, fmt.Errorf("parsing author date: %w", err)
	}

	return &vcs.Revision{
		Revision:  strings.TrimSpace(parts[0]),
		Parents:   strings.Fields(parts[1]),
		User:      parts[2],
		Email:     parts[3],
		Timestamp: ts,
		Comment:   strings.TrimRight(parts[5], "\n"),
	}, nil
}

func parseNameStatus(out string) []vcs.ModifiedFile {
	var files []vcs.ModifiedFile
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		// Renames and copies report "R100\told\tnew"; the new path is last.
		files = append(files, vcs.ModifiedFile{
			FileName: fields[len(fields)-1],
			Action:   vcs.FileAction(fields[0]),
		})
	}
	return files
}

package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportReports appends settled parties to a plain text results file.
func ExportReports(filename string, reports []PartyReport) error {
	if len(reports) == 0 {
		return nil
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if !fileExists {
		sb.WriteString("Party House Results\n")
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	}
	for _, rep := range reports {
		sb.WriteString(fmt.Sprintf("[%s] room %s - %s\n", rep.At.Format("2006-01-02 15:04:05"), rep.RoomID, rep.PlayerName))
		if len(rep.Guests) > 0 {
			sb.WriteString(fmt.Sprintf("  guests: %s\n", strings.Join(rep.Guests, ", ")))
		} else {
			sb.WriteString("  guests: none\n")
		}
		sb.WriteString(fmt.Sprintf("  ended: %s, popularity +%d, money +%d\n", rep.Reason, rep.Score.Popularity, rep.Score.Money))
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

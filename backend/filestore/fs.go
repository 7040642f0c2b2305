package filestore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// createFileBackup makes a duplicate of file in the same location with '.bak'
// appended to its filename. Any existing backup is overwritten.
//
// returns path to new backup file and any error that occurred.
func createFileBackup(file string) (string, error) {
	buPath := backupPath(file)

	rf, err := os.Open(file)
	if err != nil {
		return buPath, fmt.Errorf("open original: %w", err)
	}
	defer rf.Close()
	wf, err := os.Create(buPath)
	if err != nil {
		return buPath, fmt.Errorf("create backup: %w", err)
	}
	defer wf.Close()

	r := bufio.NewReader(rf)
	w := bufio.NewWriter(wf)

	if _, err := io.Copy(w, r); err != nil {
		return buPath, fmt.Errorf("copy data to backup: %w", err)
	}
	if err := w.Flush(); err != nil {
		return buPath, fmt.Errorf("flush backup: %w", err)
	}

	return buPath, nil
}

func backupPath(file string) string {
	return filepath.Join(filepath.Dir(file), filepath.Base(file)+".bak")
}

// writeFile replaces the contents of file with data.
func writeFile(file string, data []byte) error {
	wf, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	defer wf.Close()

	w := bufio.NewWriter(wf)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush data file: %w", err)
	}
	return nil
}

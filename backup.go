package otpkit

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tim-projects/otpkit/otp"
)

var ErrNoBackup = errors.New("otpkit: no vault backup or export file found")

var backupFileRE = regexp.MustCompile(`^aegis-(backup|export)(-plain)?-\d+(-\d+)*\.json$`)

// FindBackupPath returns the most recently modified
// backup's filepath in the directory.
func FindBackupPath(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	backupFile, err := LastModified(files)
	if err != nil {
		return "", err
	}

	if backupFile == nil {
		return "", ErrNoBackup
	}

	return filepath.Join(dir, backupFile.Name()), nil
}

// LastModified finds the most recent backup file.
func LastModified(files []fs.DirEntry) (fs.DirEntry, error) {
	var backupFile fs.DirEntry
	var err error

	for _, file := range files {
		// Ignore directories and non-backup files
		if file.IsDir() || !backupFileRE.MatchString(file.Name()) {
			continue
		}

		if backupFile == nil {
			backupFile = file
			continue
		}

		backupFile, err = lastModTime(file, backupFile)
		if err != nil {
			return nil, err
		}
	}

	return backupFile, nil
}

// lastModTime returns whichever entry was modified later.
func lastModTime(file1 fs.DirEntry, file2 fs.DirEntry) (fs.DirEntry, error) {
	info1, err := file1.Info()
	if err != nil {
		return nil, err
	}

	info2, err := file2.Info()
	if err != nil {
		return nil, err
	}

	if info2.ModTime().After(info1.ModTime()) {
		return file2, nil
	}

	return file1, nil
}

// TimeToNext calculates the time until the next code refresh
// for the period in seconds, defaulting to 30.
func TimeToNext(now time.Time, period int64) time.Duration {
	if period <= 0 {
		period = otp.DefaultPeriod
	}

	var p int64 = period * int64(time.Second)

	return time.Duration(p - now.UnixNano()%p)
}

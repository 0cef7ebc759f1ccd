package utils

import "time"

// FileStampLayout is the timestamp prefix used for generated file names
const FileStampLayout = "20060102_150405"

// NowRFC3339 returns the current time in RFC3339 format
func NowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}

// FileStamp formats t for use inside a file name
func FileStamp(t time.Time) string {
	return t.Format(FileStampLayout)
}

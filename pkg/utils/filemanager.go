// =============================================================================
// SALT Nexus Analyzer - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the analyzer, including:
//   - Input discovery (*.csv and *.xlsx extracts)
//   - Input archival after a successful run
//   - Output file naming
//   - The run summary (JSON) and the rejected-row error log (text)
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive only when archiving is enabled
//   - Failed runs leave inputs in place
//   - Logs and summaries are written to the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/google/uuid"
)

// InputPatterns are the extract types picked up from the input directory.
var InputPatterns = []string{"*.csv", "*.xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the analyzer.
type FileManager struct {
	// InputDir is the directory where extracts are placed.
	InputDir string

	// OutputDir receives reports and logs.
	OutputDir string

	// InputArchiveDir receives processed extracts.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/sales.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess moves inputs to the archive after a run.
	ArchiveOnSuccess bool
}

// NewFileManager creates a FileManager. Archiving is off until
// ArchiveOnSuccess is set.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
	}
}

// EnsureDirectories creates the input and output directories, plus the
// archive directory when archiving is enabled.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.InputDir, fm.OutputDir}
	if fm.ArchiveOnSuccess {
		dirs = append(dirs, fm.InputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for extracts matching
// InputPatterns.
//
// RETURNS:
//   - File paths sorted by name so runs over the same directory are
//     processed in the same order.
//   - An error if the directory cannot be scanned.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	var result []string

	for _, pattern := range InputPatterns {
		files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan input directory")
		}

		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil || info.IsDir() {
				continue
			}
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//   - now: Used for the date subdirectories.
//
// RETURNS:
//   - The archived path, or filePath unchanged when archiving is disabled.
//   - An error if the move fails.
func (fm *FileManager) ArchiveInputFile(filePath string, now time.Time) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath, now)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create archive directory")
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", errors.Wrap(err, "failed to copy file to archive")
		}
		if err := os.Remove(filePath); err != nil {
			return "", errors.Wrap(err, "failed to remove original file")
		}
	}

	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(fm.InputArchiveDir, fileName)
	}
	return filepath.Join(
		fm.InputArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		fileName,
	)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands a name format.
//
// PARAMETERS:
//   - format: The format string. Placeholders:
//       {uuid}      - A random UUID
//       {timestamp} - now as YYYYMMDD_HHMMSS
//       {date}      - now as YYYYMMDD
//       {client}    - params["client"] with spaces replaced by underscores
//     Other params keys are substituted as {key}.
//   - params: Placeholder values.
//   - ext: The extension to ensure, including the dot (e.g. ".xlsx").
//   - now: The run time.
//
// EXAMPLE:
//   format: "{client}_Nexus_Analysis_{timestamp}"
//   params: {"client": "Acme Corp"}
//   output: "Acme_Corp_Nexus_Analysis_20240115_143022.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string, now time.Time) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		if key == "client" {
			value = strings.Join(strings.Fields(value), "_")
		}
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// WriteSummaryJSON writes v as indented JSON to outputDir/fileName.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if encoding or writing fails.
func WriteSummaryJSON(v any, outputDir, fileName string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode run summary")
	}

	path := filepath.Join(outputDir, fileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write run summary")
	}
	return path, nil
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one rejected input row.
type ErrorLogEntry struct {
	SourceFile string
	SourceRow  int
	Reason     string
	Fields     map[string]string
}

// WriteErrorLog writes rejected rows to outputDir/fileName.
//
// RETURNS:
//   - The path to the log, or "" when there is nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir, fileName string, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fileName)
	file, err := os.Create(logPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create error log")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "SALT Nexus Analyzer - Rejected Rows\n"+
		"Generated: %s\n"+
		"Total Rejected: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Row #%d\n", i+1)
		fmt.Fprintf(writer, "  File:    %s\n", entry.SourceFile)
		if entry.SourceRow > 0 {
			fmt.Fprintf(writer, "  Line:    %d\n", entry.SourceRow)
		}
		fmt.Fprintf(writer, "  Reason:  %s\n", entry.Reason)

		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(writer, "    %s = %s\n", k, entry.Fields[k])
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", errors.Wrap(err, "failed to flush error log")
	}
	return logPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

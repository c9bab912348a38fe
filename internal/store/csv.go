// SPDX-License-Identifier: MIT
/*
Package store persists trial records and threshold summaries as CSV under the
session data directory:

	<data_dir>/raw/<participant>_<condition>_<test>_<timestamp>.csv
	<data_dir>/processed/<participant>_thresholds_<timestamp>.csv

Files are written whole and synced before close. Raw trial files are written
per block so an aborted session keeps everything collected up to the failure.
*/
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"audiometry/internal/log"
	"audiometry/internal/session"
)

// Filename timestamps are filesystem-safe; row timestamps are ISO-8601.
const fileStamp = "20060102_150405"

var trialHeader = []string{
	"participant_id", "condition", "test_type", "trial_number",
	"stimulus_value", "target_interval", "response_interval",
	"correct", "reaction_time", "reversal", "timestamp",
}

var summaryHeader = []string{
	"participant_id", "condition", "test_type", "threshold",
	"threshold_unit", "n_trials", "n_reversals", "timestamp",
}

// CSVStore writes one raw file per block and one summary file per session.
type CSVStore struct {
	rawDir       string
	processedDir string
}

// NewCSVStore creates the raw/ and processed/ subdirectories under dataDir.
func NewCSVStore(dataDir string) (*CSVStore, error) {
	s := &CSVStore{
		rawDir:       filepath.Join(dataDir, "raw"),
		processedDir: filepath.Join(dataDir, "processed"),
	}
	for _, dir := range []string{s.rawDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return s, nil
}

// SaveTrials writes one block's records to a new raw trial file.
func (s *CSVStore) SaveTrials(participant string, condition session.Condition, testType session.TestType, records []session.TrialRecord) error {
	name := fmt.Sprintf("%s_%s_%s_%s.csv",
		participant, condition, testType, time.Now().Format(fileStamp))
	path := filepath.Join(s.rawDir, name)

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, trialHeader)
	for _, r := range records {
		rows = append(rows, []string{
			r.ParticipantID,
			string(r.Condition),
			string(r.TestType),
			strconv.Itoa(r.TrialNumber),
			formatValue(r.StimulusValue),
			strconv.Itoa(r.TargetInterval),
			strconv.Itoa(r.ResponseInterval),
			strconv.FormatBool(r.Correct),
			formatValue(r.ReactionTime.Seconds()),
			strconv.FormatBool(r.Reversal),
			r.Timestamp.Format(time.RFC3339),
		})
	}

	if err := writeCSV(path, rows); err != nil {
		return err
	}
	log.Infof("store: wrote %d trials to %s", len(records), path)
	return nil
}

// SaveSummaries writes all completed block summaries to one processed file.
func (s *CSVStore) SaveSummaries(participant string, summaries []session.ThresholdSummary) error {
	name := fmt.Sprintf("%s_thresholds_%s.csv", participant, time.Now().Format(fileStamp))
	path := filepath.Join(s.processedDir, name)

	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, summaryHeader)
	for _, t := range summaries {
		rows = append(rows, []string{
			t.ParticipantID,
			string(t.Condition),
			string(t.TestType),
			formatValue(t.Threshold),
			t.ThresholdUnit,
			strconv.Itoa(t.NTrials),
			strconv.Itoa(t.NReversals),
			t.Timestamp.Format(time.RFC3339),
		})
	}

	if err := writeCSV(path, rows); err != nil {
		return err
	}
	log.Infof("store: wrote %d summaries to %s", len(summaries), path)
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Package csvstorage writes extracted records to one CSV file per task.
// The header row is the task's field names in declared order, followed
// by the Url and Time provenance columns.
package csvstorage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/webgather/harvester/spider"
	"go.uber.org/zap"
)

type CSVStorage struct {
	files map[string]*taskFile
	options
}

type taskFile struct {
	f *os.File
	w *csv.Writer
}

func New(opts ...Option) (*CSVStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &CSVStorage{}
	s.options = options
	s.files = make(map[string]*taskFile)

	if err := os.MkdirAll(s.path, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", s.path, err)
	}

	return s, nil
}

func (s *CSVStorage) Save(dataCells ...*spider.DataCell) error {
	for _, cell := range dataCells {
		if cell.Task == nil {
			return errors.New("no task attached to data cell")
		}

		record, ok := cell.Data["Data"].(spider.Record)
		if !ok {
			return errors.New("no record data field")
		}

		tf, err := s.taskFile(cell.Task)
		if err != nil {
			return err
		}

		row := make([]string, 0, len(cell.Task.Fields)+2)
		for _, name := range cell.Task.FieldNames() {
			row = append(row, record[name])
		}

		url, _ := cell.Data["URL"].(string)
		fetchTime, _ := cell.Data["Time"].(string)
		row = append(row, url, fetchTime)

		if err := tf.w.Write(row); err != nil {
			return fmt.Errorf("write record for task %s: %w", cell.Task.Name, err)
		}
	}

	return nil
}

// Flush forces buffered rows to disk.
func (s *CSVStorage) Flush() error {
	var firstErr error

	for name, tf := range s.files {
		tf.w.Flush()
		if err := tf.w.Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush task %s: %w", name, err)
		}
	}

	return firstErr
}

// Close flushes and closes every task file.
func (s *CSVStorage) Close() error {
	err := s.Flush()

	for _, tf := range s.files {
		if cerr := tf.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.files = make(map[string]*taskFile)

	return err
}

func (s *CSVStorage) taskFile(task *spider.Task) (*taskFile, error) {
	if tf, ok := s.files[task.Name]; ok {
		return tf, nil
	}

	path := filepath.Join(s.path, task.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	header := append(task.FieldNames(), "Url", "Time")
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header for task %s: %w", task.Name, err)
	}

	s.logger.Info("start csv output",
		zap.String("task", task.Name),
		zap.String("path", path))

	tf := &taskFile{f: f, w: w}
	s.files[task.Name] = tf

	return tf, nil
}

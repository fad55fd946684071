// Package sqlstorage stores extracted records in MySQL, one table per
// task with one MEDIUMTEXT column per configured field.
package sqlstorage

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/webgather/harvester/spider"
	"github.com/webgather/harvester/sqldb"
	"go.uber.org/zap"
)

type SQLStorage struct {
	dataDocker []*spider.DataCell // 分批输出结果缓存
	db         sqldb.DBer
	Table      map[string]struct{}
	idGen      *snowflake.Node
	options
}

func New(opts ...Option) (*SQLStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &SQLStorage{}
	s.options = options
	s.Table = make(map[string]struct{})

	var err error
	if s.idGen, err = snowflake.NewNode(1); err != nil {
		return nil, err
	}

	s.db, err = sqldb.New(
		sqldb.WithConnURL(s.sqlURL),
		sqldb.WithLogger(s.logger),
	)

	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStorage) Save(dataCells ...*spider.DataCell) error {
	for _, cell := range dataCells {
		name := cell.GetTableName()
		if _, ok := s.Table[name]; !ok {
			columnNames, err := getFields(cell)
			if err != nil {
				return err
			}

			err = s.db.CreateTable(sqldb.TableData{
				TableName:   name,
				ColumnNames: columnNames,
			})
			if err != nil {
				s.logger.Error("create table failed", zap.Error(err))

				return err
			}

			s.Table[name] = struct{}{}
		}

		// 缓存的批次不能跨表
		if len(s.dataDocker) > 0 && s.dataDocker[0].GetTableName() != name {
			if err := s.Flush(); err != nil {
				s.logger.Error("insert data failed", zap.Error(err))
			}
		}

		if len(s.dataDocker) >= s.BatchCount {
			if err := s.Flush(); err != nil {
				s.logger.Error("insert data failed", zap.Error(err))
			}
		}

		s.dataDocker = append(s.dataDocker, cell)
	}

	return nil
}

// Flush writes the buffered batch. The engine calls it once more at the
// end of the run so a short final batch is not lost.
func (s *SQLStorage) Flush() error {
	if len(s.dataDocker) == 0 {
		return nil
	}

	defer func() {
		s.dataDocker = nil
	}()

	args := make([]interface{}, 0)

	for _, datacell := range s.dataDocker {
		record, ok := datacell.Data["Data"].(spider.Record)
		if !ok {
			return errors.New("no record data field")
		}

		if datacell.Task == nil {
			return errors.New("no task attached to data cell")
		}

		args = append(args, s.idGen.Generate().Int64())

		for _, field := range datacell.Task.FieldNames() {
			args = append(args, record[field])
		}

		url, _ := datacell.Data["URL"].(string)
		fetchTime, _ := datacell.Data["Time"].(string)
		args = append(args, url, fetchTime)
	}

	first := s.dataDocker[0]
	columnNames, err := getFields(first)
	if err != nil {
		return err
	}

	return s.db.Insert(sqldb.TableData{
		TableName:   first.GetTableName(),
		ColumnNames: columnNames,
		Args:        args,
		DataCount:   len(s.dataDocker),
	})
}

func getFields(cell *spider.DataCell) ([]sqldb.Field, error) {
	if cell.Task == nil {
		return nil, errors.New("no task attached to data cell")
	}

	columnNames := []sqldb.Field{
		{Title: "Id", Type: "BIGINT"},
	}

	for _, field := range cell.Task.FieldNames() {
		columnNames = append(columnNames, sqldb.Field{
			Title: field,
			Type:  "MEDIUMTEXT",
		})
	}

	columnNames = append(columnNames,
		sqldb.Field{Title: "Url", Type: "VARCHAR(255)"},
		sqldb.Field{Title: "Time", Type: "VARCHAR(255)"},
	)

	return columnNames, nil
}

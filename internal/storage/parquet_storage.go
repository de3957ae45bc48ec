package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/zakazai/flatdb/internal/types"
)

// ParquetRow is one record of a serialized table: the column header or a row,
// kept as JSON text.
type ParquetRow struct {
	TableName string `parquet:"name=table_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataJSON  string `parquet:"name=data_json, type=BYTE_ARRAY, convertedtype=UTF8"`
}

const parquetExt = ".parquet"

// ParquetStorage implements types.Storage using one SNAPPY-compressed Parquet
// file per table. The first record holds the column header.
type ParquetStorage struct {
	baseDir string
	mu      sync.Mutex
}

// NewParquetStorage creates a new Parquet storage
func NewParquetStorage(dataDir string) (*ParquetStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &ParquetStorage{baseDir: dataDir}, nil
}

func (s *ParquetStorage) tablePath(database, table string) string {
	return filepath.Join(s.baseDir, database, table+parquetExt)
}

func (s *ParquetStorage) ReadTable(database, table string) ([]byte, error) {
	if err := validName(database, table); err != nil {
		return nil, err
	}
	filePath := s.tablePath(database, table)
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}

	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	parquetRows := make([]ParquetRow, numRows)
	if numRows > 0 {
		if err := pr.Read(&parquetRows); err != nil {
			return nil, fmt.Errorf("failed to read Parquet rows: %w", err)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for _, prow := range parquetRows {
		if prow.TableName != table {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(prow.DataJSON)
		n++
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s *ParquetStorage) WriteTable(database, table string, data []byte) error {
	if err := validName(database, table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.tablePath(database, table)
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("%w: %s/%s", types.ErrTableExists, database, table)
	}
	return s.writeParquetFile(filePath, table, data)
}

func (s *ParquetStorage) EditTable(database, table string, data []byte) error {
	if err := validName(database, table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.tablePath(database, table)
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", types.ErrNotFound, database, table)
	}
	return s.writeParquetFile(filePath, table, data)
}

// writeParquetFile splits the serialized table into records and writes them
// to a temporary file that then replaces filePath.
func (s *ParquetStorage) writeParquetFile(filePath, tableName string, data []byte) error {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to split table records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := writeRecords(tmp, tableName, records); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace Parquet file: %w", err)
	}
	return nil
}

func writeRecords(path, tableName string, records []json.RawMessage) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create Parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 4)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		var compact bytes.Buffer
		if err := json.Compact(&compact, rec); err != nil {
			return fmt.Errorf("failed to compact record: %w", err)
		}
		if err := pw.Write(&ParquetRow{TableName: tableName, DataJSON: compact.String()}); err != nil {
			return fmt.Errorf("failed to write Parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to flush Parquet file: %w", err)
	}
	return nil
}

func (s *ParquetStorage) ShowTables(database string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, database))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), parquetExt) {
			continue
		}
		tables = append(tables, strings.TrimSuffix(e.Name(), parquetExt))
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *ParquetStorage) Close() error {
	return nil
}

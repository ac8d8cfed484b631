package proximity

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// NetworkColumns names CSV columns of node and edge tables
type NetworkColumns struct {
	NodeID string `mapstructure:"node_id"`
	NodeX  string `mapstructure:"node_x"`
	NodeY  string `mapstructure:"node_y"`
	From   string `mapstructure:"from"`
	To     string `mapstructure:"to"`
	Weight string `mapstructure:"weight"`
}

// DefaultNetworkColumns returns urbanaccess-style column names
func DefaultNetworkColumns() NetworkColumns {
	return NetworkColumns{
		NodeID: "id_int",
		NodeX:  "x",
		NodeY:  "y",
		From:   "from_int",
		To:     "to_int",
		Weight: "weight",
	}
}

// LoadNodesCSV reads real nodes table. Coordinates are converted with projection.
func LoadNodesCSV(fname string, columns NetworkColumns, projection Projection) ([]RealNodeRecord, error) {
	rows, header, err := readCSV(fname)
	if err != nil {
		return nil, err
	}
	idIdx, err := columnIndex(header, columns.NodeID)
	if err != nil {
		return nil, err
	}
	xIdx, err := columnIndex(header, columns.NodeX)
	if err != nil {
		return nil, err
	}
	yIdx, err := columnIndex(header, columns.NodeY)
	if err != nil {
		return nil, err
	}
	nodes := make([]RealNodeRecord, 0, len(rows))
	for i, row := range rows {
		x, err := strconv.ParseFloat(strings.TrimSpace(row[xIdx]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't parse X at row %d", i+1)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(row[yIdx]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't parse Y at row %d", i+1)
		}
		nodes = append(nodes, RealNodeRecord{
			ID:    strings.TrimSpace(row[idIdx]),
			Point: projection.ToPlanar(orb.Point{x, y}),
		})
	}
	return nodes, nil
}

// LoadEdgesCSV reads real edges table
func LoadEdgesCSV(fname string, columns NetworkColumns) ([]RealEdgeRecord, error) {
	rows, header, err := readCSV(fname)
	if err != nil {
		return nil, err
	}
	fromIdx, err := columnIndex(header, columns.From)
	if err != nil {
		return nil, err
	}
	toIdx, err := columnIndex(header, columns.To)
	if err != nil {
		return nil, err
	}
	weightIdx, err := columnIndex(header, columns.Weight)
	if err != nil {
		return nil, err
	}
	edges := make([]RealEdgeRecord, 0, len(rows))
	for i, row := range rows {
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[weightIdx]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't parse weight at row %d", i+1)
		}
		edges = append(edges, RealEdgeRecord{
			From:   strings.TrimSpace(row[fromIdx]),
			To:     strings.TrimSpace(row[toIdx]),
			Weight: weight,
		})
	}
	return edges, nil
}

func readCSV(fname string) ([][]string, []string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't open CSV file")
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comma = detectComma(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't read CSV header")
	}
	rows := make([][]string, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't read CSV row")
		}
		if len(row) < len(header) {
			return nil, nil, fmt.Errorf("CSV row %d has %d fields, header has %d", len(rows)+1, len(row), len(header))
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

// detectComma peeks first line: ';' (as ExportToCSV writes) or ','
func detectComma(file *os.File) rune {
	buf := make([]byte, 4096)
	n, _ := file.Read(buf)
	file.Seek(0, io.SeekStart)
	line := string(buf[:n])
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("Column '%s' not found in %v", name, header)
}

package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"stratLab/internal/domain"
)

// WriteBarsToCSV writes a bar series to a flat CSV file.
func WriteBarsToCSV(bars []*domain.Bar, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"date", "symbol", "open", "high", "low", "close", "volume"})
	for _, b := range bars {
		writer.Write([]string{
			b.Date.Format(time.RFC3339),
			b.Symbol,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadBarsFromCSV reads a bar series written by WriteBarsToCSV.
func ReadBarsFromCSV(filename string) ([]*domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv file %s has no data rows", filename)
	}

	bars := make([]*domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 7 {
			return nil, fmt.Errorf("csv file %s row %d has %d columns, want 7", filename, i+2, len(rec))
		}
		date, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv file %s row %d: bad date: %w", filename, i+2, err)
		}
		vals := make([]float64, 5)
		for j, field := range rec[2:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("csv file %s row %d column %d: %w", filename, i+2, j+3, err)
			}
			vals[j] = v
		}
		bars = append(bars, &domain.Bar{
			Date:   date,
			Symbol: rec[1],
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

// DatasetFromCSV loads one or more bar CSV files into a dataset with close
// and volume panels.
func DatasetFromCSV(filenames ...string) (*domain.Dataset, error) {
	bySymbol := make(map[string][]*domain.Bar)
	for _, filename := range filenames {
		bars, err := ReadBarsFromCSV(filename)
		if err != nil {
			return nil, err
		}
		for _, b := range bars {
			bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
		}
	}
	closes, volumes := domain.PanelFromBars(bySymbol)
	return &domain.Dataset{Closes: closes, Volumes: volumes}, nil
}

// WriteTradesToCSV writes a trade log to a flat CSV file.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"symbol", "side", "shares", "price", "date", "cost", "realized_pnl", "reason"})
	for _, t := range trades {
		writer.Write([]string{
			t.Symbol,
			string(t.Side),
			strconv.FormatFloat(t.Shares, 'f', -1, 64),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			t.Date.Format(time.RFC3339),
			strconv.FormatFloat(t.Cost, 'f', -1, 64),
			strconv.FormatFloat(t.RealizedPnL, 'f', -1, 64),
			t.Reason,
		})
	}
	return writer.Error()
}

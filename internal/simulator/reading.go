package simulator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column order of a recording row.
const (
	colTimestamp = iota
	colPatientID
	colPatientName
	colPatientIdentifier
	colHeartRate
	colOxygenSaturation
	colSystolic
	colDiastolic
	colTemperature
	colRespiratoryRate
	colStatus
	columnCount
)

// Reading is the wire frame a bedside monitor sends.
type Reading struct {
	Timestamp         string  `json:"timestamp"`
	PatientID         string  `json:"paciente_id"`
	PatientName       string  `json:"paciente_nome"`
	PatientIdentifier string  `json:"paciente_cpf"`
	HeartRate         int     `json:"freq_cardiaca"`
	OxygenSaturation  int     `json:"saturacao_o2"`
	SystolicPressure  int     `json:"pressao_sistolica"`
	DiastolicPressure int     `json:"pressao_diastolica"`
	Temperature       float64 `json:"temperatura"`
	RespiratoryRate   int     `json:"freq_respiratoria"`
	Status            string  `json:"status"`
}

// LoadFile reads every reading in a recording file.
func LoadFile(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	readings, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, nil
}

// ReadCSV parses a recording. A first row starting with "timestamp" is
// treated as a header and skipped.
func ReadCSV(r io.Reader) ([]Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columnCount
	cr.TrimLeadingSpace = true

	var readings []Reading
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return readings, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[colTimestamp]), "timestamp") {
			continue
		}

		reading, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, reading)
	}
}

func parseRow(row []string) (Reading, error) {
	p := rowParser{row: row}
	reading := Reading{
		Timestamp:         row[colTimestamp],
		PatientID:         row[colPatientID],
		PatientName:       row[colPatientName],
		PatientIdentifier: row[colPatientIdentifier],
		HeartRate:         p.int(colHeartRate, "freq_cardiaca"),
		OxygenSaturation:  p.int(colOxygenSaturation, "saturacao_o2"),
		SystolicPressure:  p.int(colSystolic, "pressao_sistolica"),
		DiastolicPressure: p.int(colDiastolic, "pressao_diastolica"),
		Temperature:       p.float(colTemperature, "temperatura"),
		RespiratoryRate:   p.int(colRespiratoryRate, "freq_respiratoria"),
		Status:            strings.TrimSpace(row[colStatus]),
	}
	return reading, p.err
}

// rowParser keeps the first conversion error.
type rowParser struct {
	row []string
	err error
}

func (p *rowParser) int(col int, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(p.row[col]))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %q is not an integer", name, p.row[col])
	}
	return v
}

func (p *rowParser) float(col int, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.row[col]), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %q is not a number", name, p.row[col])
	}
	return v
}

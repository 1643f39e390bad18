package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNormal Status = "NORMAL"
	StatusAlert  Status = "ALERTA"
)

func (s Status) Valid() bool {
	return s == StatusNormal || s == StatusAlert
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// VitalSignRecord is one reading from a patient monitor. ID and
// ServerReceivedAt are assigned by the server; the record is never mutated
// after it has been persisted.
type VitalSignRecord struct {
	ID                int64     `json:"id"`
	DeviceTimestamp   string    `json:"timestamp"`
	PatientID         string    `json:"paciente_id"`
	PatientName       string    `json:"paciente_nome"`
	PatientIdentifier string    `json:"paciente_cpf"`
	HeartRate         int       `json:"freq_cardiaca"`
	OxygenSaturation  int       `json:"saturacao_o2"`
	SystolicPressure  int       `json:"pressao_sistolica"`
	DiastolicPressure int       `json:"pressao_diastolica"`
	Temperature       float64   `json:"temperatura"`
	RespiratoryRate   int       `json:"freq_respiratoria"`
	Status            Status    `json:"status"`
	ServerReceivedAt  time.Time `json:"dataCriacao"`
}

// Statistics summarises stored records by status.
type Statistics struct {
	Total  int64 `json:"totalRegistros"`
	Normal int64 `json:"registrosNormais"`
	Alert  int64 `json:"registrosAlertas"`
}

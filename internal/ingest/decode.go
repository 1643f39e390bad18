package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rafaelspotto/helthgo/internal/domain"
)

// reading is the inbound frame. Pointers distinguish a missing field from a zero value.
type reading struct {
	Timestamp         *string  `json:"timestamp" validate:"required"`
	PatientID         *string  `json:"paciente_id" validate:"required,min=1"`
	PatientName       string   `json:"paciente_nome"`
	PatientIdentifier string   `json:"paciente_cpf"`
	HeartRate         *int     `json:"freq_cardiaca" validate:"required,gte=0"`
	OxygenSaturation  *int     `json:"saturacao_o2" validate:"required,gte=0,lte=100"`
	SystolicPressure  *int     `json:"pressao_sistolica" validate:"required,gte=0"`
	DiastolicPressure *int     `json:"pressao_diastolica" validate:"required,gte=0"`
	RespiratoryRate   *int     `json:"freq_respiratoria" validate:"required,gte=0"`
	Temperature       *float64 `json:"temperatura" validate:"required"`
	Status            *string  `json:"status" validate:"required,oneof=NORMAL ALERTA"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses and validates one frame. The returned record has no ID and
// no ServerReceivedAt yet.
func Decode(payload []byte) (domain.VitalSignRecord, error) {
	var in reading
	if err := json.Unmarshal(payload, &in); err != nil {
		return domain.VitalSignRecord{}, &domain.ValidationError{Reason: "malformed payload", Err: err}
	}

	if err := validate.Struct(in); err != nil {
		return domain.VitalSignRecord{}, &domain.ValidationError{Reason: describe(err), Err: err}
	}

	return domain.VitalSignRecord{
		DeviceTimestamp:   *in.Timestamp,
		PatientID:         *in.PatientID,
		PatientName:       in.PatientName,
		PatientIdentifier: in.PatientIdentifier,
		HeartRate:         *in.HeartRate,
		OxygenSaturation:  *in.OxygenSaturation,
		SystolicPressure:  *in.SystolicPressure,
		DiastolicPressure: *in.DiastolicPressure,
		RespiratoryRate:   *in.RespiratoryRate,
		Temperature:       *in.Temperature,
		Status:            domain.Status(*in.Status),
	}, nil
}

// jsonFields maps struct field names to their wire names for error messages.
var jsonFields = map[string]string{
	"Timestamp":         "timestamp",
	"PatientID":         "paciente_id",
	"HeartRate":         "freq_cardiaca",
	"OxygenSaturation":  "saturacao_o2",
	"SystolicPressure":  "pressao_sistolica",
	"DiastolicPressure": "pressao_diastolica",
	"RespiratoryRate":   "freq_respiratoria",
	"Temperature":       "temperatura",
	"Status":            "status",
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonFields[fe.StructField()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", name))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", name, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}

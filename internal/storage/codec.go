package storage

import (
	"encoding/json"
	"errors"

	"panmixia/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeChampion(c model.ChampionRecord) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeChampion(data []byte) (model.ChampionRecord, error) {
	var champion model.ChampionRecord
	if err := json.Unmarshal(data, &champion); err != nil {
		return model.ChampionRecord{}, err
	}
	if err := checkVersion(champion.VersionedRecord); err != nil {
		return model.ChampionRecord{}, err
	}
	return champion, nil
}

func EncodeScapeSummary(s model.ScapeSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeScapeSummary(data []byte) (model.ScapeSummary, error) {
	var summary model.ScapeSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.ScapeSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.ScapeSummary{}, err
	}
	return summary, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

// NewVersionedRecord stamps a record with the current schema and codec
// versions.
func NewVersionedRecord() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

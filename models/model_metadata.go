package models

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ModelDescription describes one trained pipeline in the knowledge pack.
type ModelDescription struct {
	Name             string            `json:"Name"`
	ClassMaps        map[string]string `json:"ClassMaps"`
	ModelType        string            `json:"ModelType"`
	FeatureFunctions []string          `json:"FeatureFunctions"`
}

// ModelMetadata is the static descriptor shipped with a knowledge pack.
// It is only used for labelling output, never for control flow.
type ModelMetadata struct {
	NumModels         int                `json:"NumModels"`
	ModelIndexes      map[string]string  `json:"ModelIndexes"`
	ModelDescriptions []ModelDescription `json:"ModelDescriptions"`
}

// DefaultModelMetadata describes a single unnamed pipeline.
func DefaultModelMetadata() *ModelMetadata {
	return &ModelMetadata{
		NumModels:    1,
		ModelIndexes: map[string]string{"0": "PIPELINE_1_RANK_0"},
		ModelDescriptions: []ModelDescription{{
			Name:             "PIPELINE_1_RANK_0",
			ClassMaps:        map[string]string{"0": "Unknown"},
			ModelType:        "PME",
			FeatureFunctions: []string{"Minimum", "InterquartileRange"},
		}},
	}
}

// ParseModelMetadata decodes the descriptor JSON.
func ParseModelMetadata(data []byte) (*ModelMetadata, error) {
	var m ModelMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	if m.NumModels != len(m.ModelDescriptions) {
		return nil, fmt.Errorf("model metadata: NumModels=%d but %d descriptions",
			m.NumModels, len(m.ModelDescriptions))
	}
	return &m, nil
}

// LoadModelMetadata reads the descriptor from disk.
func LoadModelMetadata(path string) (*ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	return ParseModelMetadata(data)
}

// Description returns the description of model index, or nil.
func (m *ModelMetadata) Description(model uint16) *ModelDescription {
	if m == nil {
		return nil
	}
	if name, ok := m.ModelIndexes[strconv.Itoa(int(model))]; ok {
		for i := range m.ModelDescriptions {
			if m.ModelDescriptions[i].Name == name {
				return &m.ModelDescriptions[i]
			}
		}
	}
	if int(model) < len(m.ModelDescriptions) {
		return &m.ModelDescriptions[model]
	}
	return nil
}

// ModelName returns the pipeline name, or "model<N>" when unknown.
func (m *ModelMetadata) ModelName(model uint16) string {
	if d := m.Description(model); d != nil && d.Name != "" {
		return d.Name
	}
	return "model" + strconv.Itoa(int(model))
}

// ClassName returns the human-readable label for a class id. Class 0 is
// always "Unknown".
func (m *ModelMetadata) ClassName(model, class uint16) string {
	if d := m.Description(model); d != nil {
		if n, ok := d.ClassMaps[strconv.Itoa(int(class))]; ok {
			return n
		}
	}
	if class == ClassUnknown {
		return "Unknown"
	}
	return "class" + strconv.Itoa(int(class))
}

// FeatureFunctions returns the ordered feature function names of a model.
func (m *ModelMetadata) FeatureFunctions(model uint16) []string {
	if d := m.Description(model); d != nil {
		return d.FeatureFunctions
	}
	return nil
}

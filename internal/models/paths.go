// Package models resolves model weight and dictionary locations on disk.
package models

import (
	"os"
	"path/filepath"
)

// Default file locations relative to the models directory.
const (
	DetectionBubbles = "detection/bubbles.onnx"
	RecognitionCJK   = "recognition/PP-OCRv5_mobile_rec.onnx"
	DictionaryCJK    = "dictionaries/ppocr_keys_v1.txt"
	DefaultModelsDir = "models"
	EnvModelsDir     = "BUBBLETRANS_MODELS_DIR"
	kindDetection    = "detection"
	kindRecognition  = "recognition"
	kindDictionary   = "dictionary"
)

// GetModelsDir returns the models directory.
// Priority: explicit modelsDir, then the environment variable, then ./models.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	return DefaultModelsDir
}

// Resolve returns path unchanged when absolute, otherwise joins it under the models directory.
func Resolve(modelsDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetModelsDir(modelsDir), path)
}

// ModelInfo describes one model artifact and whether it is present.
type ModelInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Inventory reports the configured artifacts and whether each file exists.
func Inventory(modelsDir, detection, recognition, dictionary string) []ModelInfo {
	entries := []ModelInfo{
		{Name: "bubble-detector", Kind: kindDetection, Path: Resolve(modelsDir, orDefault(detection, DetectionBubbles))},
		{Name: "cjk-recognizer", Kind: kindRecognition, Path: Resolve(modelsDir, orDefault(recognition, RecognitionCJK))},
		{Name: "cjk-dictionary", Kind: kindDictionary, Path: Resolve(modelsDir, orDefault(dictionary, DictionaryCJK))},
	}
	for i := range entries {
		_, err := os.Stat(entries[i].Path)
		entries[i].Exists = err == nil
	}
	return entries
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

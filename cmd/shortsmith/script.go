package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"shortsmith/internal/api"
	"shortsmith/internal/scene"
)

// loadScript reads a script file ("-" for stdin). Both a bare scene array
// and an object with "scenes" and "config" are accepted.
func loadScript(path string, stdin io.Reader) (api.SubmitRequest, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return api.SubmitRequest{}, err
	}
	return parseScript(data)
}

func parseScript(data []byte) (api.SubmitRequest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return api.SubmitRequest{}, fmt.Errorf("script is empty")
	}
	if trimmed[0] == '[' {
		var scenes []scene.Scene
		if err := json.Unmarshal(trimmed, &scenes); err != nil {
			return api.SubmitRequest{}, fmt.Errorf("parse scene list: %w", err)
		}
		return api.SubmitRequest{Scenes: scenes}, nil
	}
	var req api.SubmitRequest
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return api.SubmitRequest{}, fmt.Errorf("parse script: %w", err)
	}
	return req, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

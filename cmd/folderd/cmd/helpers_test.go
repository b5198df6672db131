package cmd

import (
	"os"

	"github.com/foldermcp/folderd/internal/config"
)

func writeEmptyFile(path string) error {
	return os.WriteFile(path, nil, 0o644)
}

// testConfig returns a minimal Config for tests that never spawn an
// embedding worker (no folders get registered against it).
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Embeddings.ModelID = "test-model"
	return cfg
}
